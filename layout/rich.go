package layout

import (
	"strings"
	"unicode"

	"github.com/ByLCY/grimoire/markup"
)

// run 是一段同字形的文本，或一个行内图标（icon 非空）。
type run struct {
	text string
	font string
	icon string
	alt  string
}

// fragment 是一行内的一段可绘制内容，x 为相对行首的偏移。
type fragment struct {
	x     float64
	width float64
	text  string
	font  string
	icon  string
	alt   string
}

type richLine struct {
	fragments []fragment
	width     float64
}

// iconScale 是行内图标边长相对字号的比例。
const iconScale = 1.15

// runsFromInlines 把行内节点转换为 run；base 为普通文本使用的字形（正文或斜体）。
func runsFromInlines(inlines []markup.Inline, base string) []run {
	out := make([]run, 0, len(inlines))
	for _, in := range inlines {
		switch in.Kind {
		case markup.InlineBold:
			font := FontBold
			if base == FontItalic {
				font = FontBoldItalic
			}
			out = append(out, run{text: in.Text, font: font})
		case markup.InlineItalic:
			font := FontItalic
			if base == FontBold {
				font = FontBoldItalic
			}
			out = append(out, run{text: in.Text, font: font})
		case markup.InlineIcon:
			out = append(out, run{icon: in.Icon, alt: in.Text})
		default:
			out = append(out, run{text: in.Text, font: base})
		}
	}
	return out
}

type token struct {
	text  string
	font  string
	icon  string
	alt   string
	space bool
}

func tokenizeRuns(runs []run) []token {
	var out []token
	for _, r := range runs {
		if r.icon != "" {
			out = append(out, token{icon: r.icon, alt: r.alt})
			continue
		}
		var b strings.Builder
		lastSpace := false
		flush := func() {
			if b.Len() == 0 {
				return
			}
			out = append(out, token{text: b.String(), font: r.font, space: lastSpace})
			b.Reset()
		}
		for _, ch := range r.text {
			isSpace := unicode.IsSpace(ch)
			if b.Len() > 0 && isSpace != lastSpace {
				flush()
			}
			if isSpace {
				ch = ' '
			}
			lastSpace = isSpace
			b.WriteRune(ch)
		}
		flush()
	}
	return out
}

// wrapper 负责带字形的贪心换行，所有宽度单位为 mm。
type wrapper struct {
	ts     Typesetter
	fonts  map[string]FontResource
	size   float64
	widths map[string]float64
}

func newWrapper(ts Typesetter, fonts map[string]FontResource, size float64) *wrapper {
	return &wrapper{ts: ts, fonts: fonts, size: size, widths: map[string]float64{}}
}

func (w *wrapper) measure(text, font string) (float64, error) {
	key := font + "\x00" + text
	if v, ok := w.widths[key]; ok {
		return v, nil
	}
	v, err := w.ts.TextWidth(text, w.fonts[font], w.size)
	if err != nil {
		return 0, err
	}
	w.widths[key] = v
	return v, nil
}

func (w *wrapper) iconSize() float64 {
	return w.size * iconScale
}

// wrap 对 runs 做贪心换行；行首空白被丢弃，超宽单词按字符拆分。
func (w *wrapper) wrap(runs []run, width float64) ([]richLine, error) {
	var (
		lines []richLine
		cur   richLine
	)
	emit := func() {
		// 去掉行尾空白
		for len(cur.fragments) > 0 {
			last := &cur.fragments[len(cur.fragments)-1]
			if last.icon != "" || strings.TrimRight(last.text, " ") != "" {
				break
			}
			cur.width = last.x
			cur.fragments = cur.fragments[:len(cur.fragments)-1]
		}
		if n := len(cur.fragments); n > 0 && cur.fragments[n-1].icon == "" {
			last := &cur.fragments[n-1]
			if trimmed := strings.TrimRight(last.text, " "); trimmed != last.text {
				tw, err := w.measure(trimmed, last.font)
				if err == nil {
					last.text = trimmed
					last.width = tw
					cur.width = last.x + tw
				}
			}
		}
		lines = append(lines, cur)
		cur = richLine{}
	}
	place := func(text, font string, tw float64) {
		if n := len(cur.fragments); n > 0 {
			last := &cur.fragments[n-1]
			if last.icon == "" && last.font == font {
				last.text += text
				last.width += tw
				cur.width += tw
				return
			}
		}
		cur.fragments = append(cur.fragments, fragment{x: cur.width, width: tw, text: text, font: font})
		cur.width += tw
	}

	for _, tok := range tokenizeRuns(runs) {
		if tok.icon != "" {
			size := w.iconSize()
			if cur.width > 0 && cur.width+size > width {
				emit()
			}
			cur.fragments = append(cur.fragments, fragment{x: cur.width, width: size, icon: tok.icon, alt: tok.alt})
			cur.width += size
			continue
		}
		if tok.space {
			if len(cur.fragments) == 0 {
				continue
			}
			tw, err := w.measure(" ", tok.font)
			if err != nil {
				return nil, err
			}
			place(" ", tok.font, tw)
			continue
		}
		tw, err := w.measure(tok.text, tok.font)
		if err != nil {
			return nil, err
		}
		if cur.width > 0 && cur.width+tw > width {
			emit()
		}
		if tw <= width {
			place(tok.text, tok.font, tw)
			continue
		}
		chunks, err := w.split(tok.text, tok.font, width)
		if err != nil {
			return nil, err
		}
		for _, chunk := range chunks {
			cw, err := w.measure(chunk, tok.font)
			if err != nil {
				return nil, err
			}
			if cur.width > 0 && cur.width+cw > width {
				emit()
			}
			place(chunk, tok.font, cw)
		}
	}
	if len(cur.fragments) > 0 || len(lines) == 0 {
		emit()
	}
	return lines, nil
}

func (w *wrapper) split(text, font string, limit float64) ([]string, error) {
	var parts []string
	var b strings.Builder
	for _, ch := range text {
		b.WriteRune(ch)
		tw, err := w.measure(b.String(), font)
		if err != nil {
			return nil, err
		}
		if tw > limit && b.Len() > len(string(ch)) {
			runes := []rune(b.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			b.Reset()
			b.WriteRune(ch)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts, nil
}

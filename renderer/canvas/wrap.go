package canvasrenderer

import (
	"math"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/grimoire/layout"
)

// textWidther 是换行只需要的字体能力，便于测试替换。
type textWidther interface {
	TextWidth(s string) float64
}

var _ textWidther = (*canvas.FontFace)(nil)

// greedyWrap 贪心换行：优先在空白处断行，单词超宽时按字符拆分；显式换行总是生效。
// wrap=nowrap 时只按显式换行划分。宽度单位为 mm。
func greedyWrap(content string, width float64, face textWidther, wrap string) []layout.TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	if wrap == "nowrap" {
		parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
		lines := make([]layout.TextLine, 0, len(parts))
		for _, p := range parts {
			lines = append(lines, layout.TextLine{Content: p, Width: face.TextWidth(p)})
		}
		return lines
	}

	var (
		lines []layout.TextLine
		b     strings.Builder
		cur   float64
	)
	emit := func(force bool) {
		if b.Len() == 0 && !force {
			return
		}
		text := strings.TrimRight(b.String(), " \t")
		lines = append(lines, layout.TextLine{Content: text, Width: face.TextWidth(text)})
		b.Reset()
		cur = 0
	}
	add := func(tok string, tw float64) {
		b.WriteString(tok)
		cur += tw
	}

	for _, tok := range tokenize(content) {
		if tok == "\n" {
			emit(true)
			continue
		}
		isSpace := strings.TrimSpace(tok) == ""
		if isSpace && b.Len() == 0 {
			continue
		}
		tw := face.TextWidth(tok)
		if cur > 0 && cur+tw > limit {
			emit(false)
			if isSpace {
				continue
			}
		}
		if tw <= limit {
			add(tok, tw)
			continue
		}
		for _, chunk := range splitByWidth(tok, limit, face) {
			cw := face.TextWidth(chunk)
			if cur > 0 && cur+cw > limit {
				emit(false)
			}
			add(chunk, cw)
		}
	}
	if b.Len() > 0 || len(lines) == 0 {
		emit(true)
	}
	return lines
}

// tokenize 把文本切成单词、空白与换行三类记号。
func tokenize(s string) []string {
	var (
		tokens    []string
		b         strings.Builder
		lastSpace bool
	)
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\n':
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if b.Len() > 0 && isSpace != lastSpace {
			flush()
		}
		lastSpace = isSpace
		b.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit float64, face textWidther) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var cur []rune
	for _, r := range token {
		cur = append(cur, r)
		if len(cur) > 1 && face.TextWidth(string(cur)) > limit {
			parts = append(parts, string(cur[:len(cur)-1]))
			cur = []rune{r}
		}
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

package layout

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/markup"
)

// 卡面固定区域（mm，相对卡片左上角）。
const (
	frameInset   = 1.5
	frameStroke  = 0.6
	contentInset = 4.0

	headerHeight = 24.0
	footerHeight = 10.0
	backTop      = 4.0
	backBottom   = 8.0

	badgeRadius   = 4.0
	chipIconSize  = 3.2
	classIconSize = 2.6
	legendRow     = 4.2

	lineFactor  = 1.2
	blockFactor = 0.35
)

// BodyRegion 返回某一面正文区域的顶部与可用高度（相对卡片）。
func BodyRegion(side card.Side) (top, height float64) {
	if side == card.SideBack {
		return backTop, card.Height - backTop - backBottom
	}
	return headerHeight, card.Height - headerHeight - footerHeight
}

// Composer 把卡面转换为页面上的绘制元素。
type Composer struct {
	ts    Typesetter
	fonts map[string]FontResource
	text  Color
	sizes []float64
}

// NewComposer 根据 BuildOptions 创建 Composer。
func NewComposer(opts BuildOptions) (*Composer, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	fonts := opts.Fonts
	if len(fonts) == 0 {
		fonts = DefaultFonts()
	}
	for _, name := range []string{FontBody, FontBold, FontItalic, FontBoldItalic} {
		if _, ok := fonts[name]; !ok {
			return nil, fmt.Errorf("layout: 缺少字体 %s", name)
		}
	}
	text := Color{R: 30, G: 30, B: 30}
	if opts.TextColor != "" {
		c, ok := ColorOf(opts.TextColor)
		if !ok {
			return nil, fmt.Errorf("layout: 正文颜色 %s 无效", opts.TextColor)
		}
		text = c
	}
	sizes := opts.BodySizes
	if len(sizes) == 0 {
		sizes = DefaultBodySizes
	}
	return &Composer{ts: opts.Typesetter, fonts: fonts, text: text, sizes: sizes}, nil
}

// Tiers 返回正文字号档位数。
func (c *Composer) Tiers() int { return len(c.sizes) }

// bodySize 返回档位对应的字号（mm）；越界时取最小档位。
func (c *Composer) bodySize(tier int) float64 {
	if tier < 0 {
		tier = 0
	}
	if tier >= len(c.sizes) {
		tier = len(c.sizes) - 1
	}
	return c.sizes[tier] * PtToMm
}

// canvas 收集一张卡的绘制元素。
type canvas struct {
	texts   []TextBox
	images  []ImageBox
	lines   []Line
	rects   []Rect
	circles []Circle
}

func (p *canvas) flushTo(page *Page) {
	page.Texts = append(page.Texts, p.texts...)
	page.Images = append(page.Images, p.images...)
	page.Lines = append(page.Lines, p.lines...)
	page.Rects = append(page.Rects, p.rects...)
	page.Circles = append(page.Circles, p.circles...)
}

// palette 是卡面颜色的 layout 形式。
type palette struct {
	accent Color
	base   Color
	muted  Color
	text   Color
	// baseFill 为 nil 表示底色透明
	baseFill *Color
}

func (c *Composer) palette(face *card.Face) palette {
	p := palette{accent: c.text, base: Color{R: 255, G: 255, B: 255}, muted: Color{R: 180, G: 180, B: 180}, text: c.text}
	if v, ok := ColorOf(face.Accent); ok {
		p.accent = v
	}
	if v, ok := ColorOf(face.Base); ok {
		p.base = v
		p.baseFill = &v
	}
	if v, ok := ColorOf(face.Muted); ok {
		p.muted = v
	}
	return p
}

// ComposeFace 把一面卡绘制到 (x, y) 位置。
func (c *Composer) ComposeFace(page *Page, face *card.Face, x, y float64) error {
	if face == nil {
		return nil
	}
	out := &canvas{}
	p := c.palette(face)

	out.rects = append(out.rects, Rect{
		X: x + frameInset, Y: y + frameInset,
		Width: card.Width - 2*frameInset, Height: card.Height - 2*frameInset,
		StrokeColor: p.accent, StrokeWidth: frameStroke, FillColor: p.baseFill,
	})
	if face.Starred {
		fill := p.accent
		out.circles = append(out.circles, Circle{CX: x + card.Width - 4.5, CY: y + 4.5, R: 1.4, StrokeColor: p.accent, StrokeWidth: 0.2, FillColor: &fill})
	}

	switch {
	case face.Blank:
		c.composeBlank(out, p, x, y)
	case face.Legend != nil:
		if err := c.composeLegend(out, face, p, x, y); err != nil {
			return err
		}
	default:
		if face.Header != nil {
			if err := c.composeHeader(out, face.Header, p, x, y); err != nil {
				return err
			}
		}
		top, _ := BodyRegion(face.Side)
		if _, err := c.composeBody(out, face, p, x+contentInset, y+top, card.Width-2*contentInset); err != nil {
			return err
		}
		if face.Footer != nil {
			if err := c.composeFooter(out, face.Footer, p, x, y); err != nil {
				return err
			}
		}
	}
	out.flushTo(page)
	return nil
}

func (c *Composer) composeBlank(out *canvas, p palette, x, y float64) {
	cx, cy := x+card.Width/2, y+card.Height/2
	for _, r := range []float64{12, 9} {
		out.circles = append(out.circles, Circle{CX: cx, CY: cy, R: r, StrokeColor: p.accent, StrokeWidth: 0.4})
	}
	out.lines = append(out.lines,
		Line{X1: cx - 16, Y1: cy, X2: cx + 16, Y2: cy, Color: p.accent, Width: 0.3},
		Line{X1: cx, Y1: cy - 16, X2: cx, Y2: cy + 16, Color: p.accent, Width: 0.3},
	)
}

// textBox 生成单行文本框；宽度由 Typesetter 测量。
func (c *Composer) textBox(content, font string, sizePt float64, col Color, x, y float64) (TextBox, error) {
	size := sizePt * PtToMm
	w, err := c.ts.TextWidth(content, c.fonts[font], size)
	if err != nil {
		return TextBox{}, err
	}
	return TextBox{
		Content: content, X: x, Y: y, Width: w, LineHeight: size * lineFactor,
		Font: font, FontSize: size, Color: col, Height: size,
		Lines: []TextLine{{Content: content, Width: w, Height: size}},
	}, nil
}

// paragraphBox 在给定宽度内折行，最多保留 maxLines 行（0 表示不限）。
func (c *Composer) paragraphBox(content, font string, sizePt float64, col Color, x, y, width float64, maxLines int) (TextBox, error) {
	size := sizePt * PtToMm
	lineHeight := size * lineFactor
	lines, err := c.ts.LayoutLines(content, width, c.fonts[font], size, lineHeight, "")
	if err != nil {
		return TextBox{}, err
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1].Content += "…"
	}
	total := 0.0
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = size
		}
		if i > 0 && lines[i].GapBefore <= 0 {
			lines[i].GapBefore = math.Max(lineHeight-size, 0)
		}
		total += lines[i].GapBefore + lines[i].Height
	}
	return TextBox{
		Content: content, X: x, Y: y, Width: width, LineHeight: lineHeight,
		Font: font, FontSize: size, Color: col, Lines: lines, Height: total,
	}, nil
}

func iconBox(ref card.IconRef, x, y, size float64) ImageBox {
	return ImageBox{Path: ref.Image.Path, Alt: ref.Alt, X: x, Y: y, Width: size, Height: size}
}

func (c *Composer) composeHeader(out *canvas, h *card.Header, p palette, x, y float64) error {
	// 等级徽章
	badgeX, badgeY := x+contentInset+badgeRadius-0.5, y+contentInset+badgeRadius-0.5
	fill := p.accent
	out.circles = append(out.circles, Circle{CX: badgeX, CY: badgeY, R: badgeRadius, StrokeColor: p.accent, StrokeWidth: 0.2, FillColor: &fill})
	level, err := c.textBox(h.Level, FontBold, 10, p.base, badgeX, badgeY-10*PtToMm/2)
	if err != nil {
		return err
	}
	level.X -= level.Width / 2
	out.texts = append(out.texts, level)

	// 施法时间
	chipX := x + card.Width - contentInset - 2*badgeRadius
	if h.CastingTime.Glyph {
		out.circles = append(out.circles, Circle{CX: chipX + badgeRadius, CY: badgeY, R: badgeRadius - 0.8, StrokeColor: p.accent, StrokeWidth: 0.4})
		tb, err := c.textBox(h.CastingTime.Text, FontBold, 8, p.accent, chipX+badgeRadius, badgeY-8*PtToMm/2)
		if err != nil {
			return err
		}
		tb.X -= tb.Width / 2
		out.texts = append(out.texts, tb)
	} else if h.CastingTime.Text != "" {
		tb, err := c.textBox(h.CastingTime.Text, FontBold, 6.5, p.accent, 0, badgeY-6.5*PtToMm/2)
		if err != nil {
			return err
		}
		tb.X = x + card.Width - contentInset - tb.Width
		out.texts = append(out.texts, tb)
		chipX = tb.X
	}

	// 名称与副标题
	nameX := badgeX + badgeRadius + 1.5
	nameW := chipX - nameX - 1
	name, err := c.paragraphBox(h.Name, FontBold, 8.5, p.text, nameX, y+contentInset, nameW, 1)
	if err != nil {
		return err
	}
	out.texts = append(out.texts, name)
	if h.Subtitle != "" {
		sub, err := c.paragraphBox(h.Subtitle, FontItalic, 5.5, p.text, nameX, name.Y+name.Height+0.4, nameW, 1)
		if err != nil {
			return err
		}
		out.texts = append(out.texts, sub)
	}

	// 距离/持续时间/目标
	cursor := x + contentInset
	rowY := y + 13
	for _, chip := range []*card.Chip{h.Range, h.Duration, h.Targets} {
		if chip == nil {
			continue
		}
		if chip.Icon != nil {
			out.images = append(out.images, iconBox(*chip.Icon, cursor, rowY, chipIconSize))
			cursor += chipIconSize + 0.6
		}
		if chip.Text != "" {
			tb, err := c.textBox(chip.Text, FontBody, 6.5, p.text, cursor, rowY+(chipIconSize-6.5*PtToMm)/2)
			if err != nil {
				return err
			}
			out.texts = append(out.texts, tb)
			cursor += tb.Width
		}
		cursor += 2.5
	}

	// 成分
	cursor = x + contentInset
	rowY = y + 18
	for _, ref := range h.Components {
		out.images = append(out.images, iconBox(ref, cursor, rowY, chipIconSize))
		cursor += chipIconSize + 0.4
	}
	if h.Material != "" {
		cursor += 0.8
		tb, err := c.paragraphBox(h.Material, FontItalic, 5.5, p.text, cursor, rowY, x+card.Width-contentInset-cursor, 2)
		if err != nil {
			return err
		}
		out.texts = append(out.texts, tb)
	}
	out.lines = append(out.lines, Line{X1: x + contentInset, Y1: y + headerHeight - 1, X2: x + card.Width - contentInset, Y2: y + headerHeight - 1, Color: p.muted, Width: 0.2})
	return nil
}

// composeBody 绘制正文并返回实际占用高度，不做裁剪。
func (c *Composer) composeBody(out *canvas, face *card.Face, p palette, x, y, width float64) (float64, error) {
	size := c.bodySize(face.Body.FontTier)
	lineHeight := size * lineFactor
	gap := lineHeight * blockFactor
	w := newWrapper(c.ts, c.fonts, size)
	cursor := y

	place := func(lines []richLine, dx float64) {
		for _, ln := range lines {
			for _, fr := range ln.fragments {
				if fr.icon != "" {
					img := face.Inline[fr.icon]
					iconSize := w.iconSize()
					out.images = append(out.images, ImageBox{
						Path: img.Path, Alt: fr.alt,
						X: x + dx + fr.x, Y: cursor + (lineHeight-iconSize)/2,
						Width: iconSize, Height: iconSize,
					})
					continue
				}
				out.texts = append(out.texts, TextBox{
					Content: fr.text, X: x + dx + fr.x, Y: cursor + (lineHeight-size)/2,
					Width: fr.width, LineHeight: lineHeight, Font: fr.font, FontSize: size,
					Color: p.text, Height: size,
					Lines: []TextLine{{Content: fr.text, Width: fr.width, Height: size}},
				})
			}
			cursor += lineHeight
		}
	}

	if face.Body.Trigger != "" {
		lines, err := w.wrap([]run{{text: face.Body.Trigger, font: FontItalic}}, width)
		if err != nil {
			return 0, err
		}
		place(lines, 0)
		cursor += gap
	}

	nodes := face.Body.Nodes
	for i, node := range nodes {
		if i > 0 {
			cursor += gap
		}
		if node.HigherLevels && (i == 0 || !nodes[i-1].HigherLevels) {
			cursor += gap
			r := lineHeight * 0.45
			out.lines = append(out.lines, Line{X1: x, Y1: cursor + r, X2: x + width, Y2: cursor + r, Color: p.accent, Width: 0.25})
			fill := p.accent
			out.circles = append(out.circles, Circle{CX: x + r, CY: cursor + r, R: r, StrokeColor: p.accent, StrokeWidth: 0.2, FillColor: &fill})
			plus, err := c.textBox("+", FontBold, size*MmToPt, p.base, x+r, cursor+r-size/2)
			if err != nil {
				return 0, err
			}
			plus.X -= plus.Width / 2
			out.texts = append(out.texts, plus)
			cursor += 2*r + gap
		}

		block := node.Block
		if face.Body.Continued && face.Side == card.SideFront && i == len(nodes)-1 {
			block = withContinuation(block)
		}

		switch block.Kind {
		case markup.BlockList:
			indent := size * 1.6
			for n, item := range block.Items {
				marker := "•"
				if block.Ordered {
					marker = strconv.Itoa(n+1) + "."
				}
				mark, err := w.wrap([]run{{text: marker, font: FontBody}}, indent)
				if err != nil {
					return 0, err
				}
				lines, err := w.wrap(runsFromInlines(item, FontBody), width-indent)
				if err != nil {
					return 0, err
				}
				start := cursor
				place(mark, 0)
				cursor = start
				place(lines, indent)
			}
		case markup.BlockTable:
			h, err := c.composeTable(out, w, block, p, x, cursor, width, lineHeight, size, face)
			if err != nil {
				return 0, err
			}
			cursor += h
		case markup.BlockEntry:
			runs := runsFromInlines(block.Label, FontBoldItalic)
			runs = append(runs, run{text: " ", font: FontBody})
			runs = append(runs, runsFromInlines(block.Inlines, FontBody)...)
			lines, err := w.wrap(runs, width)
			if err != nil {
				return 0, err
			}
			place(lines, 0)
		default:
			lines, err := w.wrap(runsFromInlines(block.Inlines, FontBody), width)
			if err != nil {
				return 0, err
			}
			place(lines, 0)
		}
	}
	return cursor - y, nil
}

// withContinuation 在块的最后一段文本末尾追加「→」，不修改原节点。
func withContinuation(b markup.Block) markup.Block {
	arrow := markup.Inline{Kind: markup.InlineText, Text: " →"}
	out := b
	switch b.Kind {
	case markup.BlockList:
		if len(b.Items) == 0 {
			return b
		}
		out.Items = append([][]markup.Inline(nil), b.Items...)
		last := len(out.Items) - 1
		out.Items[last] = append(append([]markup.Inline(nil), out.Items[last]...), arrow)
	case markup.BlockTable:
		if len(b.Rows) == 0 {
			return b
		}
		out.Rows = append([][][]markup.Inline(nil), b.Rows...)
		lastRow := len(out.Rows) - 1
		row := append([][]markup.Inline(nil), out.Rows[lastRow]...)
		if len(row) == 0 {
			return b
		}
		row[len(row)-1] = append(append([]markup.Inline(nil), row[len(row)-1]...), arrow)
		out.Rows[lastRow] = row
	default:
		out.Inlines = append(append([]markup.Inline(nil), b.Inlines...), arrow)
	}
	return out
}

func (c *Composer) composeTable(out *canvas, w *wrapper, b markup.Block, p palette, x, y, width, lineHeight, size float64, face *card.Face) (float64, error) {
	cols := len(b.Header)
	for _, row := range b.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return 0, nil
	}
	colW := width / float64(cols)
	const pad = 0.6
	cursor := y
	drawRow := func(cells [][]markup.Inline, font string) error {
		rowLines := 1
		wrapped := make([][]richLine, len(cells))
		for i, cell := range cells {
			lines, err := w.wrap(runsFromInlines(cell, font), colW-2*pad)
			if err != nil {
				return err
			}
			wrapped[i] = lines
			if len(lines) > rowLines {
				rowLines = len(lines)
			}
		}
		for i, lines := range wrapped {
			cy := cursor
			for _, ln := range lines {
				for _, fr := range ln.fragments {
					fx := x + float64(i)*colW + pad + fr.x
					if fr.icon != "" {
						iconSize := w.iconSize()
						out.images = append(out.images, ImageBox{Path: face.Inline[fr.icon].Path, Alt: fr.alt, X: fx, Y: cy + (lineHeight-iconSize)/2, Width: iconSize, Height: iconSize})
						continue
					}
					out.texts = append(out.texts, TextBox{
						Content: fr.text, X: fx, Y: cy + (lineHeight-size)/2, Width: fr.width,
						LineHeight: lineHeight, Font: fr.font, FontSize: size, Color: p.text, Height: size,
						Lines: []TextLine{{Content: fr.text, Width: fr.width, Height: size}},
					})
				}
				cy += lineHeight
			}
		}
		cursor += float64(rowLines) * lineHeight
		return nil
	}
	if err := drawRow(b.Header, FontBold); err != nil {
		return 0, err
	}
	out.lines = append(out.lines, Line{X1: x, Y1: cursor, X2: x + width, Y2: cursor, Color: p.accent, Width: 0.2})
	for _, row := range b.Rows {
		if err := drawRow(row, FontBody); err != nil {
			return 0, err
		}
	}
	return cursor - y, nil
}

func (c *Composer) composeFooter(out *canvas, f *card.Footer, p palette, x, y float64) error {
	top := y + card.Height - footerHeight
	cursor := x + contentInset
	for _, ref := range f.Flags {
		out.images = append(out.images, iconBox(ref, cursor, top+0.6, chipIconSize))
		cursor += chipIconSize + 0.6
	}
	// 职业图标右对齐
	cx := x + card.Width - contentInset - float64(len(f.Classes))*(classIconSize+0.3)
	for _, ref := range f.Classes {
		out.images = append(out.images, iconBox(ref, cx, top+0.9, classIconSize))
		cx += classIconSize + 0.3
	}

	// 学派名逐字排布
	lx := x + contentInset
	ly := top + 5
	for _, letter := range f.School {
		tb, err := c.textBox(letter.Char, FontBold, 5, p.accent, lx, ly)
		if err != nil {
			return err
		}
		out.texts = append(out.texts, tb)
		lx += tb.Width + 0.45
	}
	if f.Source != "" {
		tb, err := c.textBox(f.Source, FontBody, 5, p.muted, 0, ly)
		if err != nil {
			return err
		}
		tb.X = x + card.Width - contentInset - tb.Width
		out.texts = append(out.texts, tb)
	}
	return nil
}

func (c *Composer) composeLegend(out *canvas, face *card.Face, p palette, x, y float64) error {
	title := "Reference"
	if face.Header != nil && face.Header.Name != "" {
		title = face.Header.Name
	}
	tb, err := c.textBox(title, FontBold, 8.5, p.text, 0, y+contentInset)
	if err != nil {
		return err
	}
	tb.X = x + (card.Width-tb.Width)/2
	out.texts = append(out.texts, tb)

	colW := (card.Width - 2*contentInset) / 2
	rows := (len(face.Legend) + 1) / 2
	top := y + contentInset + 6
	for i, ref := range face.Legend {
		col, row := i/rows, i%rows
		ex := x + contentInset + float64(col)*colW
		ey := top + float64(row)*legendRow
		out.images = append(out.images, iconBox(ref, ex, ey, chipIconSize))
		label, err := c.paragraphBox(ref.Alt, FontBody, 5.5, p.text, ex+chipIconSize+0.8, ey+0.3, colW-chipIconSize-1.2, 1)
		if err != nil {
			return err
		}
		out.texts = append(out.texts, label)
	}
	return nil
}

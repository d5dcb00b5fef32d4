package card

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ByLCY/grimoire/icon"
	"github.com/ByLCY/grimoire/markup"
	"github.com/ByLCY/grimoire/spell"
	"github.com/ByLCY/grimoire/theme"
)

// DefaultClasses 是页脚职业图标行的顺序。
var DefaultClasses = []string{
	"artificer", "bard", "cleric", "druid", "paladin", "ranger", "sorcerer", "warlock", "wizard",
}

// IconSource 按 (图标名, 前景色, 背景色) 解析图标；icon.Cache 实现了该接口。
type IconSource interface {
	Get(ctx context.Context, name, fg, bg string) (icon.Image, error)
}

// Options 配置 Renderer。
type Options struct {
	Theme   *theme.Theme
	Classes []string
	Logger  *slog.Logger
}

// Renderer 把卡片渲染为 Face。输出只取决于（记录快照, View, 星标）。
type Renderer struct {
	icons   IconSource
	theme   *theme.Theme
	classes []string
	logger  *slog.Logger
}

// NewRenderer 创建渲染器。
func NewRenderer(icons IconSource, opts Options) *Renderer {
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}
	if len(opts.Classes) == 0 {
		opts.Classes = DefaultClasses
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Renderer{icons: icons, theme: opts.Theme, classes: opts.Classes, logger: opts.Logger}
}

// palette 是一张卡使用的三种颜色。
type palette struct {
	accent string
	base   string
	muted  string
}

func (r *Renderer) palette(school spell.School, view View) palette {
	p := palette{
		accent: r.theme.MustToken("text"),
		base:   r.theme.MustToken("card-base"),
		muted:  r.theme.MustToken("muted"),
	}
	if !view.Grayscale && school.Valid() {
		p.accent = r.theme.MustToken("school-" + string(school))
	}
	return p
}

// Render 重新渲染卡片：写入 Front 并清除旧的 Back（背面由溢出处理重新生成）。
// 参考卡直接生成图例正反面。
func (r *Renderer) Render(ctx context.Context, c *Card, view View) error {
	if c.Kind == KindReference {
		front, back, err := r.Legend(ctx)
		if err != nil {
			return err
		}
		front.CardID, back.CardID = c.ID, c.ID
		c.Front, c.Back = front, back
		return nil
	}
	front, err := r.RenderFront(ctx, c, view)
	if err != nil {
		return err
	}
	c.Front, c.Back = front, nil
	return nil
}

// RenderFront 生成正面。任何缺失的图标资源都会原样向上返回（*icon.AssetMissingError）。
func (r *Renderer) RenderFront(ctx context.Context, c *Card, view View) (*Face, error) {
	rec := c.Record
	p := r.palette(rec.School, view)
	face := &Face{
		Side:    SideFront,
		CardID:  c.ID,
		Accent:  p.accent,
		Base:    p.base,
		Muted:   p.muted,
		Starred: c.Starred,
		Inline:  map[string]icon.Image{},
	}

	header, err := r.header(ctx, rec, view, p)
	if err != nil {
		return nil, fmt.Errorf("渲染卡片 %s 页眉失败: %w", rec.Name, err)
	}
	face.Header = header

	face.Body = Body{Nodes: BodyNodes(rec)}
	if rec.CastingTime.Unit == spell.TimeReaction {
		face.Body.Trigger = rec.CastingTime.Condition
	}
	if err := r.resolveInline(ctx, face); err != nil {
		return nil, fmt.Errorf("渲染卡片 %s 正文失败: %w", rec.Name, err)
	}

	footer, err := r.footer(ctx, rec, p)
	if err != nil {
		return nil, fmt.Errorf("渲染卡片 %s 页脚失败: %w", rec.Name, err)
	}
	face.Footer = footer
	return face, nil
}

// BodyNodes 把描述与「升环施法」文本转换为正文节点序列。
func BodyNodes(rec spell.Record) []Node {
	var nodes []Node
	for _, b := range markup.Render(rec.Description) {
		nodes = append(nodes, Node{Block: b})
	}
	for _, b := range markup.Render(rec.HigherLevels) {
		nodes = append(nodes, Node{Block: b, HigherLevels: true})
	}
	return nodes
}

// NewBack 生成与正面同色、同身份的背面，只含空正文，供溢出处理移动节点。
func NewBack(front *Face) *Face {
	return &Face{
		Side:    SideBack,
		CardID:  front.CardID,
		Accent:  front.Accent,
		Base:    front.Base,
		Muted:   front.Muted,
		Starred: front.Starred,
		Body:    Body{FontTier: front.Body.FontTier},
		Inline:  front.Inline,
	}
}

func (r *Renderer) icon(ctx context.Context, name, fg, bg, alt string) (IconRef, error) {
	img, err := r.icons.Get(ctx, name, fg, bg)
	if err != nil {
		return IconRef{}, err
	}
	return IconRef{Name: name, Image: img, Alt: alt}, nil
}

func (r *Renderer) header(ctx context.Context, rec spell.Record, view View, p palette) (*Header, error) {
	h := &Header{
		Level:    FormatLevel(rec.Level),
		Name:     spell.DisplayName(rec, view.ReferenceMode),
		Subtitle: rec.Subtitle,
		Material: rec.Components.Description,
	}
	text, glyph := FormatCastingTime(rec.CastingTime)
	h.CastingTime = Chip{Text: text, Glyph: glyph}

	if rec.Range != nil {
		rt := FormatRange(rec.Range)
		chip := &Chip{Text: rt.Text}
		if rt.Shape != "" {
			ref, err := r.icon(ctx, "area-"+string(rt.Shape), p.accent, p.base, string(rt.Shape))
			if err != nil {
				return nil, err
			}
			chip.Icon = &ref
		}
		h.Range = chip
	}

	if text, ok := FormatDuration(rec.Duration); ok {
		ref, err := r.icon(ctx, "duration-"+string(rec.Duration.Kind()), p.accent, p.base, string(rec.Duration.Kind()))
		if err != nil {
			return nil, err
		}
		h.Duration = &Chip{Text: text, Icon: &ref}
	}

	if t := spell.TargetsOf(rec.Range); t != nil && t.Count > 0 {
		name := "target"
		if t.RequiresSight {
			name = "target-sight"
		}
		ref, err := r.icon(ctx, name, p.accent, p.base, "targets")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf("%d", t.Count)
		if t.ScalesByLevel {
			text += "+"
		}
		h.Targets = &Chip{Text: text, Icon: &ref}
	}

	comps := rec.Components
	var names []string
	if comps.Verbal {
		names = append(names, "component-verbal")
	}
	if comps.Somatic {
		names = append(names, "component-somatic")
	}
	if comps.Material {
		switch comps.Variant() {
		case spell.MaterialConsumed:
			names = append(names, "component-material-consumed")
		case spell.MaterialCost:
			names = append(names, "component-material-cost")
		default:
			names = append(names, "component-material")
		}
	}
	for _, n := range names {
		ref, err := r.icon(ctx, n, p.accent, p.base, strings.TrimPrefix(n, "component-"))
		if err != nil {
			return nil, err
		}
		h.Components = append(h.Components, ref)
	}
	return h, nil
}

func (r *Renderer) footer(ctx context.Context, rec spell.Record, p palette) (*Footer, error) {
	f := &Footer{School: SchoolLetters(rec.School), Source: rec.Source}
	if rec.Concentration {
		ref, err := r.icon(ctx, "concentration", p.accent, p.base, "concentration")
		if err != nil {
			return nil, err
		}
		f.Flags = append(f.Flags, ref)
	}
	if rec.Ritual {
		ref, err := r.icon(ctx, "ritual", p.accent, p.base, "ritual")
		if err != nil {
			return nil, err
		}
		f.Flags = append(f.Flags, ref)
	}
	for _, class := range r.classes {
		fg := p.accent
		muted := !rec.HasClass(class)
		if muted {
			fg = p.muted
		}
		ref, err := r.icon(ctx, "class-"+class, fg, p.base, class)
		if err != nil {
			return nil, err
		}
		ref.Muted = muted
		f.Classes = append(f.Classes, ref)
	}
	return f, nil
}

// resolveInline 解析正文中出现的全部占位符图标。
func (r *Renderer) resolveInline(ctx context.Context, face *Face) error {
	for _, n := range face.Body.Nodes {
		for _, name := range iconNames(n.Block) {
			if _, ok := face.Inline[name]; ok {
				continue
			}
			img, err := r.icons.Get(ctx, name, face.Accent, face.Base)
			if err != nil {
				return err
			}
			face.Inline[name] = img
		}
	}
	return nil
}

func iconNames(b markup.Block) []string {
	var out []string
	collect := func(inlines []markup.Inline) {
		for _, in := range inlines {
			if in.Kind == markup.InlineIcon {
				out = append(out, in.Icon)
			}
		}
	}
	collect(b.Label)
	collect(b.Inlines)
	for _, item := range b.Items {
		collect(item)
	}
	for _, cell := range b.Header {
		collect(cell)
	}
	for _, row := range b.Rows {
		for _, cell := range row {
			collect(cell)
		}
	}
	return out
}

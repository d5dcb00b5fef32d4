package card

import (
	"context"
	"fmt"

	"github.com/ByLCY/grimoire/icon"
	"github.com/ByLCY/grimoire/markup"
)

// Legend 生成参考卡（图标图例）的正反面。图例按条目数对半分到两面。
// 内容是静态的，每次排版都重新生成。
func (r *Renderer) Legend(ctx context.Context) (front, back *Face, err error) {
	p := r.palette("", View{Grayscale: true})
	entries := markup.Legend()
	refs := make([]IconRef, 0, len(entries))
	for _, e := range entries {
		ref, err := r.icon(ctx, e.Icon, p.accent, p.base, e.Label)
		if err != nil {
			return nil, nil, fmt.Errorf("生成图例失败: %w", err)
		}
		refs = append(refs, ref)
	}
	half := (len(refs) + 1) / 2
	front = &Face{
		Side:   SideFront,
		Accent: p.accent,
		Base:   p.base,
		Muted:  p.muted,
		Header: &Header{Name: "Reference"},
		Legend: refs[:half],
		Inline: map[string]icon.Image{},
	}
	back = &Face{
		Side:   SideBack,
		Accent: p.accent,
		Base:   p.base,
		Muted:  p.muted,
		Header: &Header{Name: "Reference"},
		Legend: refs[half:],
		Inline: map[string]icon.Image{},
	}
	return front, back, nil
}

// DefaultBack 生成通用空白背面，用于统一双面打印。
func (r *Renderer) DefaultBack(context.Context) (*Face, error) {
	p := r.palette("", View{Grayscale: true})
	return &Face{
		Side:   SideBack,
		Blank:  true,
		Accent: p.accent,
		Base:   p.base,
		Muted:  p.muted,
		Inline: map[string]icon.Image{},
	}, nil
}

package layout

import (
	"fmt"

	"github.com/ByLCY/grimoire/card"
)

// Sheet 描述一张待排版的纸：尺寸、卡片位置与裁切线。
type Sheet struct {
	Width  float64
	Height float64
	Cards  []Placement
	Marks  []Line
}

// Placement 是一面卡在纸上的左上角坐标。
type Placement struct {
	X    float64
	Y    float64
	Face *card.Face
}

// Build 把排好位置的卡面转换为可直接渲染的页面。
func Build(sheets []Sheet, opts BuildOptions) (*Result, error) {
	composer, err := NewComposer(opts)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("没有可排版的页面")
	}
	pages := make([]Page, 0, len(sheets))
	for i, sheet := range sheets {
		page := Page{Width: sheet.Width, Height: sheet.Height}
		for _, pl := range sheet.Cards {
			if err := composer.ComposeFace(&page, pl.Face, pl.X, pl.Y); err != nil {
				return nil, fmt.Errorf("排版第 %d 页失败: %w", i+1, err)
			}
		}
		// 裁切线最后绘制，压在卡面之上
		page.Lines = append(page.Lines, sheet.Marks...)
		pages = append(pages, page)
	}
	return &Result{
		Pages:     pages,
		Resources: ResourceSet{Fonts: composer.fonts},
		Meta:      opts.Meta,
	}, nil
}

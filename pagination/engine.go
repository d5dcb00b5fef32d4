// Package pagination 负责把有序卡片放进固定网格的页面：计算网格、分配槽位、回收页面并画裁切线。
package pagination

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ByLCY/grimoire/card"
)

// Options 控制背面的摆放方式。
type Options struct {
	// DefaultCardBack 为每张没有真实背面的正面补一张通用背面。
	DefaultCardBack bool
	// SideBySide 让正面与真实背面并排于同一行；请求 DefaultCardBack 时不生效。
	SideBySide bool
}

// FaceSource 在排版时生成参考卡与通用背面。card.Renderer 实现了该接口。
type FaceSource interface {
	Legend(ctx context.Context) (front, back *card.Face, err error)
	DefaultBack(ctx context.Context) (*card.Face, error)
}

var _ FaceSource = (*card.Renderer)(nil)

// Summary 是一次排版的统计。
type Summary struct {
	Cards int
	Slots int
	Pages int
}

type Engine struct {
	faces  FaceSource
	logger *slog.Logger
}

func NewEngine(faces FaceSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{faces: faces, logger: logger}
}

// Layout 按顺序遍历卡片一次，维护全局槽位号：
// 并排模式下若卡片有真实背面且当前槽位位于行末，先插入一个空位；
// 然后放正面，有背面时紧接着放背面。页数随后调整为恰好容纳全部槽位。
func (e *Engine) Layout(ctx context.Context, cards []*card.Card, sizeID string, host *Host, opts Options) (Summary, error) {
	if host == nil {
		return Summary{}, fmt.Errorf("排版失败: 缺少页面容器")
	}
	size, err := LookupSize(sizeID)
	if err != nil {
		return Summary{}, err
	}
	g := ComputeGeometry(size)
	sideBySide := opts.SideBySide && !opts.DefaultCardBack

	var (
		placed      []Slot
		defaultBack *card.Face
	)
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		front, back, err := e.facesOf(ctx, c)
		if err != nil {
			return Summary{}, err
		}
		if back == nil && opts.DefaultCardBack && defaultBack == nil {
			if defaultBack, err = e.faces.DefaultBack(ctx); err != nil {
				return Summary{}, fmt.Errorf("生成通用背面失败: %w", err)
			}
		}

		if sideBySide && back != nil && len(placed)%g.Columns == g.Columns-1 {
			placed = append(placed, Slot{Kind: SlotSpacer})
		}
		placed = append(placed, Slot{Kind: SlotFront, CardID: c.ID, Face: front})
		switch {
		case back != nil:
			placed = append(placed, Slot{Kind: SlotBack, CardID: c.ID, Face: back})
		case opts.DefaultCardBack:
			placed = append(placed, Slot{Kind: SlotDefaultBack, CardID: c.ID, Face: defaultBack})
		}
	}

	host.apply(g, placed)
	sum := Summary{Cards: len(cards), Slots: len(placed), Pages: g.PagesFor(len(placed))}
	e.logger.Debug("排版完成", "cards", sum.Cards, "slots", sum.Slots, "pages", sum.Pages, "size", size.ID)
	return sum, nil
}

// facesOf 返回卡片的正反面；参考卡每次排版现生成。
func (e *Engine) facesOf(ctx context.Context, c *card.Card) (front, back *card.Face, err error) {
	if c.Kind == card.KindReference {
		front, back, err = e.faces.Legend(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("生成参考卡失败: %w", err)
		}
		front.CardID, back.CardID = c.ID, c.ID
		return front, back, nil
	}
	if c.Front == nil {
		return nil, nil, fmt.Errorf("卡片 %s 尚未渲染", c.ID)
	}
	return c.Front, c.Back, nil
}

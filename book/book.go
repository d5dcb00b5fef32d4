// Package book 串联一次完整排版：渲染卡面、处理溢出、分配槽位，再生成可渲染的页面。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/layout"
	"github.com/ByLCY/grimoire/overflow"
	"github.com/ByLCY/grimoire/pagination"
	"github.com/ByLCY/grimoire/theme"
)

// 裁切线线宽（mm）。
const markWidth = 0.2

// Options 配置 Book。
type Options struct {
	Theme   *theme.Theme
	Classes []string
	// Fonts 与 BodySizes 为空时使用 layout 的默认值。
	Fonts     map[string]layout.FontResource
	BodySizes []float64
	Meta      layout.DocumentMeta
	Logger    *slog.Logger
}

// Settings 是一次排版使用的显示设置，按值传递。
type Settings struct {
	Page   string
	View   card.View
	Layout pagination.Options
}

// Report 是一次排版的结果。
type Report struct {
	Summary pagination.Summary
	// Unresolved 是在最小字号下仍然溢出的卡片 ID。
	Unresolved []string
	Result     *layout.Result
	// Pages 是本次的槽位分配，可直接写入调试 JSON。
	Pages []*pagination.Page
}

// Book 持有排版所需的全部组件。页面容器在多次排版之间复用。
// 同一时刻只允许一次排版，并发调用会被串行化。
type Book struct {
	mu       sync.Mutex
	cards    *card.Renderer
	composer *layout.Composer
	resolver *overflow.Resolver
	engine   *pagination.Engine
	host     *pagination.Host
	build    layout.BuildOptions
	logger   *slog.Logger
}

// New 创建 Book。icons 解析卡面图标，ts 负责文本测量与断行。
func New(icons card.IconSource, ts layout.Typesetter, opts Options) (*Book, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Theme == nil {
		opts.Theme = theme.Default()
	}
	build := layout.BuildOptions{
		Typesetter: ts,
		Fonts:      opts.Fonts,
		TextColor:  opts.Theme.MustToken("text"),
		BodySizes:  opts.BodySizes,
		Meta:       opts.Meta,
	}
	composer, err := layout.NewComposer(build)
	if err != nil {
		return nil, err
	}
	renderer := card.NewRenderer(icons, card.Options{Theme: opts.Theme, Classes: opts.Classes, Logger: opts.Logger})
	return &Book{
		cards:    renderer,
		composer: composer,
		resolver: overflow.NewResolver(layout.NewMeasurer(composer), overflow.Options{Tiers: composer.Tiers(), Logger: opts.Logger}),
		engine:   pagination.NewEngine(renderer, opts.Logger),
		host:     pagination.NewHost(),
		build:    build,
		logger:   opts.Logger,
	}, nil
}

// Host 返回复用的页面容器。
func (b *Book) Host() *pagination.Host { return b.host }

// Layout 对 cards 执行一次完整排版。cards 应是牌组快照：Front/Back 会被改写。
func (b *Book) Layout(ctx context.Context, cards []*card.Card, s Settings) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := &Report{}
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.cards.Render(ctx, c, s.View); err != nil {
			return nil, fmt.Errorf("渲染卡片 %s 失败: %w", c.Record.Name, err)
		}
		res, err := b.resolver.Resolve(c)
		if err != nil {
			return nil, err
		}
		if res.Unresolved {
			report.Unresolved = append(report.Unresolved, c.ID)
		}
	}

	sum, err := b.engine.Layout(ctx, cards, s.Page, b.host, s.Layout)
	if err != nil {
		return nil, err
	}
	report.Summary = sum
	report.Pages = b.host.Pages()
	if len(report.Pages) == 0 {
		return report, nil
	}

	result, err := layout.Build(Sheets(report.Pages), b.build)
	if err != nil {
		return nil, fmt.Errorf("生成页面失败: %w", err)
	}
	report.Result = result
	return report, nil
}

// Sheets 把分配好槽位的页面转换为 layout 的输入：跳过空位，裁切线转为细线。
func Sheets(pages []*pagination.Page) []layout.Sheet {
	sheets := make([]layout.Sheet, 0, len(pages))
	for _, p := range pages {
		sheet := layout.Sheet{Width: p.Size.Width, Height: p.Size.Height}
		for _, slot := range p.Slots {
			if slot.Face == nil {
				continue
			}
			sheet.Cards = append(sheet.Cards, layout.Placement{X: slot.X, Y: slot.Y, Face: slot.Face})
		}
		for _, m := range p.Marks {
			sheet.Marks = append(sheet.Marks, layout.Line{X1: m.X1, Y1: m.Y1, X2: m.X2, Y2: m.Y2, Width: markWidth})
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

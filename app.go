package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/grimoire/book"
	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/config"
	"github.com/ByLCY/grimoire/deck"
	"github.com/ByLCY/grimoire/dsl"
	"github.com/ByLCY/grimoire/icon"
	"github.com/ByLCY/grimoire/layout"
	"github.com/ByLCY/grimoire/pagination"
	canvasrenderer "github.com/ByLCY/grimoire/renderer/canvas"
)

// project 是一次命令执行所需的状态：配置、记录集、牌组描述与牌组。
type project struct {
	cfg      *config.Config
	lib      *deck.Library
	plan     *dsl.Plan
	deck     *deck.Deck
	deckPath string
	logger   *slog.Logger
}

// renderJob 描述一次输出。
type renderJob struct {
	out    string
	format book.Format
	debug  string
}

func loadLibrary(cfg *config.Config, logger *slog.Logger) (*deck.Library, error) {
	lib := deck.NewLibrary(deck.Options{Logger: logger})
	if err := lib.LoadFile(cfg.Assets.Spells); err != nil {
		return nil, fmt.Errorf("加载法术数据失败: %w", err)
	}
	return lib, nil
}

// openProject 读取记录集与牌组文件，按清单建立牌组。
func openProject(cfg *config.Config, deckPath string, logger *slog.Logger) (*project, error) {
	lib, err := loadLibrary(cfg, logger)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(deckPath)
	if err != nil {
		return nil, fmt.Errorf("无法打开牌组文件 %s: %w", deckPath, err)
	}
	defer file.Close()

	ast, err := dsl.Parse(deckPath, file)
	if err != nil {
		return nil, fmt.Errorf("解析牌组文件失败: %w", err)
	}
	plan, err := dsl.Compile(ast)
	if err != nil {
		return nil, fmt.Errorf("解析牌组文件失败: %w", err)
	}
	mergeDefaults(plan, cfg)

	d := deck.New(lib, deck.Options{Logger: logger})
	if err := plan.Apply(lib, d, filepath.Dir(deckPath)); err != nil {
		return nil, fmt.Errorf("建立牌组失败: %w", err)
	}
	return &project{cfg: cfg, lib: lib, plan: plan, deck: d, deckPath: deckPath, logger: logger}, nil
}

// mergeDefaults 用配置补齐牌组文件中没有写出的选项。
func mergeDefaults(p *dsl.Plan, cfg *config.Config) {
	if p.Page == "" {
		p.Page = cfg.Page.Size
	}
	if p.Sort == nil {
		order := cfg.SortOrder()
		p.Sort = &order
	}
	layoutDefaults := cfg.LayoutOptions()
	if !p.Has("default-back") {
		p.Layout.DefaultCardBack = layoutDefaults.DefaultCardBack
	}
	if !p.Has("side-by-side") {
		p.Layout.SideBySide = layoutDefaults.SideBySide
	}
	if !p.Has("grayscale") {
		p.View.Grayscale = cfg.Display.Grayscale
	}
	if !p.Has("reference-only") {
		p.View.ReferenceMode = cfg.Display.ReferenceOnly
		p.Filter.ReferenceOnly = cfg.Display.ReferenceOnly
	}
	defaults := cfg.Filter()
	if !p.Filter.ExcludeReprints {
		p.Filter.ExcludeReprints = defaults.ExcludeReprints
	}
	if p.Filter.Ruleset == "" {
		p.Filter.Ruleset = defaults.Ruleset
	}
}

// cards 返回按打印顺序排列的牌组快照。
func (p *project) cards() []*card.Card {
	return deck.Ordered(p.deck.Snapshot(), *p.plan.Sort, p.plan.View.ReferenceMode)
}

func (p *project) settings() book.Settings {
	return book.Settings{Page: p.plan.Page, View: p.plan.View, Layout: p.plan.Layout}
}

// render 串联渲染、溢出处理、分页、布局与输出。
func (p *project) render(ctx context.Context, job renderJob) ([]string, error) {
	loader, err := icon.NewDirLoader(p.cfg.Assets.IconDir)
	if err != nil {
		return nil, err
	}
	sizes, err := p.cfg.BodySizes()
	if err != nil {
		return nil, err
	}
	r := canvasrenderer.NewRenderer(filepath.Dir(p.deckPath))
	b, err := book.New(icon.NewCache(loader), r, book.Options{
		Theme:     p.cfg.Palette(),
		BodySizes: sizes,
		Meta:      layout.DocumentMeta{Title: p.plan.Name, Creator: "grimoire", Subject: "spell cards"},
		Logger:    p.logger,
	})
	if err != nil {
		return nil, err
	}

	report, err := b.Layout(ctx, p.cards(), p.settings())
	if err != nil {
		return nil, fmt.Errorf("排版失败: %w", err)
	}
	for _, id := range report.Unresolved {
		p.logger.Warn("卡片内容无法完全容纳", "card", id)
	}
	if job.debug != "" {
		if err := writeDebug(report.Pages, job.debug); err != nil {
			return nil, err
		}
	}
	if report.Result == nil {
		return nil, fmt.Errorf("牌组为空，没有可输出的页面")
	}
	return book.Write(report.Result, r, job.format, job.out)
}

// requiredIcons 离线渲染全部卡面，返回实际用到的图标组合。
func (p *project) requiredIcons(ctx context.Context) ([]icon.Key, error) {
	rec := icon.NewRecorder()
	r := card.NewRenderer(icon.NewCache(rec), card.Options{Theme: p.cfg.Palette(), Logger: p.logger})
	for _, c := range p.cards() {
		if err := r.Render(ctx, c, p.plan.View); err != nil {
			return nil, err
		}
	}
	if _, _, err := r.Legend(ctx); err != nil {
		return nil, err
	}
	if _, err := r.DefaultBack(ctx); err != nil {
		return nil, err
	}
	return rec.Keys(), nil
}

func writeDebug(pages []*pagination.Page, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(pages, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ByLCY/grimoire/book"
	"github.com/ByLCY/grimoire/config"
	"github.com/ByLCY/grimoire/deck"
	"github.com/ByLCY/grimoire/icon"
	"github.com/ByLCY/grimoire/pagination"
	"github.com/ByLCY/grimoire/spell"
)

var (
	configPath string
	verbose    bool
	logger     = slog.Default()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "grimoire",
		Short:         "生成可打印的法术卡片",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "grimoire.toml", "配置文件路径")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	root.AddCommand(renderCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(iconsCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(listCmd())
	return root
}

func addOutputFlags(cmd *cobra.Command, job *renderJob, format *string) {
	cmd.Flags().StringVarP(&job.out, "out", "o", "output/deck.pdf", "输出路径；svg 格式按页追加序号")
	cmd.Flags().StringVarP(format, "format", "f", "pdf", "输出格式：pdf 或 svg")
	cmd.Flags().StringVar(&job.debug, "debug", "", "槽位分配调试 JSON 输出路径")
}

func renderCmd() *cobra.Command {
	var (
		job    renderJob
		format string
	)
	cmd := &cobra.Command{
		Use:   "render <deck-file>",
		Short: "排版牌组并输出 PDF 或 SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if job.format, err = book.ParseFormat(format); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			p, err := openProject(cfg, args[0], logger)
			if err != nil {
				return err
			}
			paths, err := p.render(cmd.Context(), job)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "已生成：%s\n", path)
			}
			return nil
		},
	}
	addOutputFlags(cmd, &job, &format)
	return cmd
}

func watchCmd() *cobra.Command {
	var (
		job    renderJob
		format string
	)
	cmd := &cobra.Command{
		Use:   "watch <deck-file>",
		Short: "牌组文件或法术数据变化时重新排版",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if job.format, err = book.ParseFormat(format); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			interval, err := cfg.MinInterval()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, cfg, args[0], job, interval, cmd.OutOrStdout())
		},
	}
	addOutputFlags(cmd, &job, &format)
	return cmd
}

// watch 监听牌组文件与法术数据所在目录，每次变化提交一个新的排版请求。
// 排版进行中到达的请求会合并，只处理最新的一次。
func watch(ctx context.Context, cfg *config.Config, deckPath string, job renderJob, interval time.Duration, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	for _, path := range []string{deckPath, cfg.Assets.Spells} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("监听 %s 失败: %w", filepath.Dir(abs), err)
		}
	}

	worker := pagination.NewWorker(ctx, func(ctx context.Context, path string) error {
		p, err := openProject(cfg, path, logger)
		if err == nil {
			var paths []string
			if paths, err = p.render(ctx, job); err == nil {
				fmt.Fprintf(out, "已生成：%s\n", strings.Join(paths, ", "))
				return nil
			}
		}
		logger.Warn("重新排版失败", "err", err)
		return err
	}, pagination.WorkerOptions{MinInterval: interval, Logger: logger})

	worker.Submit(deckPath)
	logger.Info("开始监听", "deck", deckPath, "spells", cfg.Assets.Spells)
	for {
		select {
		case <-ctx.Done():
			worker.Wait()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(ev.Name)
			if !targets[abs] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Debug("文件变化", "file", ev.Name, "op", ev.Op.String())
			worker.Submit(deckPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听出错", "err", err)
		}
	}
}

func iconsCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "icons <deck-file>...",
		Short: "生成牌组用到的全部图标组合",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			seen := map[icon.Key]bool{}
			var keys []icon.Key
			for _, path := range args {
				p, err := openProject(cfg, path, logger)
				if err != nil {
					return err
				}
				required, err := p.requiredIcons(cmd.Context())
				if err != nil {
					return err
				}
				for _, k := range required {
					if !seen[k] {
						seen[k] = true
						keys = append(keys, k)
					}
				}
			}
			n, err := icon.NewGenerator(cfg.Assets.IconDir, parallel).GenerateAll(cmd.Context(), keys)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "需要 %d 个图标，新生成 %d 个，目录：%s\n", len(keys), n, cfg.Assets.IconDir)
			return nil
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "并行生成数")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export (reference | modified <deck-file>)",
		Short: "以标准格式导出参考记录或牌组中修改过的卡片",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("创建输出文件失败: %w", err)
				}
				defer f.Close()
				w = f
			}
			switch args[0] {
			case "reference":
				lib, err := loadLibrary(cfg, logger)
				if err != nil {
					return err
				}
				return lib.ExportReference(w, cfg.Display.ReferenceOnly)
			case "modified":
				if len(args) != 2 {
					return fmt.Errorf("modified 需要牌组文件")
				}
				p, err := openProject(cfg, args[1], logger)
				if err != nil {
					return err
				}
				return p.deck.ExportModified(w, p.plan.View.ReferenceMode)
			}
			return fmt.Errorf("未知导出类型 %q", args[0])
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件，默认写到标准输出")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		f       deck.Filter
		schools []string
		order   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "按筛选条件列出法术",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			lib, err := loadLibrary(cfg, logger)
			if err != nil {
				return err
			}
			for _, s := range schools {
				school := spell.School(strings.ToLower(s))
				if !school.Valid() {
					return fmt.Errorf("未知学派 %q", s)
				}
				f.Schools = append(f.Schools, school)
			}
			defaults := cfg.Filter()
			f.ReferenceOnly = f.ReferenceOnly || defaults.ReferenceOnly
			f.ExcludeReprints = f.ExcludeReprints || defaults.ExcludeReprints
			f.Ruleset = defaults.Ruleset

			sortOrder := cfg.SortOrder()
			if cmd.Flags().Changed("sort") {
				if sortOrder, err = deck.ParseSort(order); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			for _, e := range deck.Visible(lib.Entries(), f, sortOrder) {
				fmt.Fprintf(w, "%d\t%-14s\t%s\t%s\n", e.Record.Level, e.Record.School, spell.DisplayName(e.Record, f.ReferenceOnly), e.Record.Source)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVarP(&f.Levels, "level", "l", nil, "环阶，可重复")
	cmd.Flags().StringSliceVar(&schools, "school", nil, "学派，可重复")
	cmd.Flags().StringSliceVar(&f.Classes, "class", nil, "职业，可重复")
	cmd.Flags().StringSliceVar(&f.Sources, "source", nil, "来源，可重复")
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "按名称搜索")
	cmd.Flags().BoolVar(&f.Concentration, "concentration", false, "只列出专注法术")
	cmd.Flags().BoolVar(&f.Ritual, "ritual", false, "只列出仪式法术")
	cmd.Flags().BoolVar(&f.ReferenceOnly, "reference", false, "只列出参考记录")
	cmd.Flags().BoolVar(&f.ExcludeReprints, "exclude-reprints", false, "排除重印")
	cmd.Flags().StringVar(&order, "sort", "name", "排序：name / level / school")
	return cmd
}

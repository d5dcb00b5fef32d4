// Package config 读取配置：默认值，然后是 TOML 文件，最后是环境变量（可来自 .env）。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ByLCY/grimoire/deck"
	"github.com/ByLCY/grimoire/layout"
	"github.com/ByLCY/grimoire/pagination"
	"github.com/ByLCY/grimoire/theme"
)

// 环境变量名。
const (
	EnvPageSize  = "GRIMOIRE_PAGE_SIZE"
	EnvIconDir   = "GRIMOIRE_ICON_DIR"
	EnvSpells    = "GRIMOIRE_SPELLS"
	EnvGrayscale = "GRIMOIRE_GRAYSCALE"
)

// Config 是应用配置。
type Config struct {
	Page    PageConfig        `toml:"page"`
	Display DisplayConfig     `toml:"display"`
	Assets  AssetsConfig      `toml:"assets"`
	Theme   map[string]string `toml:"theme"`
	Watch   WatchConfig       `toml:"watch"`
}

// PageConfig 控制纸张与背面摆放。
type PageConfig struct {
	Size            string `toml:"size"` // a4 或 letter
	DefaultCardBack bool   `toml:"default_card_back"`
	SideBySide      bool   `toml:"side_by_side"`
}

// DisplayConfig 控制显示模式与列表顺序。
type DisplayConfig struct {
	Grayscale       bool   `toml:"grayscale"`
	ReferenceOnly   bool   `toml:"reference_only"`
	Sort            string `toml:"sort"`    // name / level / school
	Ruleset         string `toml:"ruleset"` // 2014 / 2024
	ExcludeReprints bool   `toml:"exclude_reprints"`
	// BodySizes 是正文字号档位，例如 ["7.5pt", "6.5pt", "5.75pt"]。
	BodySizes []string `toml:"body_sizes"`
}

// AssetsConfig 指定法术数据与图标目录。
type AssetsConfig struct {
	Spells  string `toml:"spells"`
	IconDir string `toml:"icon_dir"`
}

// WatchConfig 配置 watch 命令。
type WatchConfig struct {
	MinInterval string `toml:"min_interval"` // 例如 "500ms"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Page:    PageConfig{Size: "a4"},
		Display: DisplayConfig{Sort: "name", Ruleset: string(deck.Ruleset2014)},
		Assets:  AssetsConfig{Spells: "spells.json", IconDir: "icons"},
		Theme:   map[string]string{},
		Watch:   WatchConfig{MinInterval: "500ms"},
	}
}

// Load 读取配置。path 为空或文件不存在时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
			}
		}
	}

	// .env 可选，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvPageSize); ok {
		c.Page.Size = v
	}
	if v, ok := os.LookupEnv(EnvIconDir); ok {
		c.Assets.IconDir = v
	}
	if v, ok := os.LookupEnv(EnvSpells); ok {
		c.Assets.Spells = v
	}
	if v, ok := os.LookupEnv(EnvGrayscale); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s 取值无效 %q: %w", EnvGrayscale, v, err)
		}
		c.Display.Grayscale = b
	}
	return nil
}

// Validate 检查取值是否合法。
func (c *Config) Validate() error {
	if _, err := pagination.LookupSize(c.Page.Size); err != nil {
		return fmt.Errorf("page.size: %w", err)
	}
	if _, err := deck.ParseSort(c.Display.Sort); err != nil {
		return fmt.Errorf("display.sort: %w", err)
	}
	if _, err := deck.ParseRuleset(c.Display.Ruleset); err != nil {
		return fmt.Errorf("display.ruleset: %w", err)
	}
	if _, err := c.BodySizes(); err != nil {
		return fmt.Errorf("display.body_sizes: %w", err)
	}
	if _, err := c.MinInterval(); err != nil {
		return fmt.Errorf("watch.min_interval: %w", err)
	}
	palette := c.Palette()
	for k, v := range c.Theme {
		if _, err := theme.Normalize(palette.Resolve(v)); err != nil {
			return fmt.Errorf("theme.%s: %w", k, err)
		}
	}
	return nil
}

// MinInterval 返回 watch 两次排版之间的最短间隔。
func (c *Config) MinInterval() (time.Duration, error) {
	if strings.TrimSpace(c.Watch.MinInterval) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.MinInterval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("不能为负数: %s", d)
	}
	return d, nil
}

// BodySizes 返回正文字号档位（pt）；未配置时返回 nil，使用默认档位。
func (c *Config) BodySizes() ([]float64, error) {
	if len(c.Display.BodySizes) == 0 {
		return nil, nil
	}
	return layout.ParseBodySizes(c.Display.BodySizes)
}

// SortOrder 返回解析后的排序方式；Validate 通过后不会出错。
func (c *Config) SortOrder() deck.Sort {
	s, _ := deck.ParseSort(c.Display.Sort)
	return s
}

// Filter 返回配置中的默认筛选条件。
func (c *Config) Filter() deck.Filter {
	r, _ := deck.ParseRuleset(c.Display.Ruleset)
	return deck.Filter{
		ReferenceOnly:   c.Display.ReferenceOnly,
		ExcludeReprints: c.Display.ExcludeReprints,
		Ruleset:         r,
	}
}

// LayoutOptions 返回分页选项。
func (c *Config) LayoutOptions() pagination.Options {
	return pagination.Options{DefaultCardBack: c.Page.DefaultCardBack, SideBySide: c.Page.SideBySide}
}

// Palette 返回叠加了配置覆盖项的主题。
func (c *Config) Palette() *theme.Theme {
	return theme.New(c.Theme)
}

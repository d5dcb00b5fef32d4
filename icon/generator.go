package icon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/grimoire/theme"
)

// 预生成图标的像素尺寸（正方形）。
const generatedSize = 64

// Generator 在渲染之外（离线）为每个 (name, fg, bg) 组合生成 PNG 资源。
type Generator struct {
	dir      string
	parallel int

	faceOnce sync.Once
	face     font.Face
	faceErr  error
	faceMu   sync.Mutex
}

// NewGenerator 创建生成器；parallel<=0 时默认 4 路并发。
func NewGenerator(dir string, parallel int) *Generator {
	if parallel <= 0 {
		parallel = 4
	}
	return &Generator{dir: dir, parallel: parallel}
}

// GenerateAll 生成全部 key 对应的资源，已存在的文件会被跳过。返回新生成的数量。
func (g *Generator) GenerateAll(ctx context.Context, keys []Key) (int, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return 0, fmt.Errorf("创建图标目录失败: %w", err)
	}
	var (
		mu      sync.Mutex
		created int
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallel)
	for _, key := range keys {
		key := key
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(g.dir, key.FileName())
			if _, err := os.Stat(path); err == nil {
				return nil
			}
			if err := g.Generate(key, path); err != nil {
				return err
			}
			mu.Lock()
			created++
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return created, err
	}
	return created, nil
}

// Generate 绘制单个图标并写入 path。
func (g *Generator) Generate(key Key, path string) error {
	dc := gg.NewContext(generatedSize, generatedSize)
	if r, gr, b, ok := theme.RGB(key.BG); ok {
		dc.SetRGB255(r, gr, b)
		dc.Clear()
	}
	r, gr, b, ok := theme.RGB(key.FG)
	if !ok {
		// 透明前景只留底色
		return dc.SavePNG(path)
	}
	dc.SetRGB255(r, gr, b)
	dc.SetLineWidth(5)

	const s = float64(generatedSize)
	switch key.Name {
	case "area-cone":
		dc.MoveTo(s*0.15, s*0.5)
		dc.LineTo(s*0.85, s*0.18)
		dc.LineTo(s*0.85, s*0.82)
		dc.ClosePath()
		dc.Fill()
	case "area-sphere":
		dc.DrawCircle(s/2, s/2, s*0.36)
		dc.Fill()
	case "area-cube":
		dc.DrawRectangle(s*0.18, s*0.18, s*0.64, s*0.64)
		dc.Fill()
	case "area-cylinder":
		dc.DrawEllipse(s/2, s*0.25, s*0.3, s*0.1)
		dc.Stroke()
		dc.DrawRectangle(s*0.2, s*0.25, s*0.6, s*0.5)
		dc.Stroke()
	case "area-line":
		dc.DrawRectangle(s*0.1, s*0.42, s*0.8, s*0.16)
		dc.Fill()
	case "area-emanation":
		for _, rad := range []float64{0.14, 0.26, 0.38} {
			dc.DrawCircle(s/2, s/2, s*rad)
			dc.Stroke()
		}
	default:
		dc.DrawCircle(s/2, s/2, s*0.44)
		dc.Stroke()
		face, err := g.letterFace()
		if err != nil {
			return err
		}
		g.faceMu.Lock()
		dc.SetFontFace(face)
		dc.DrawStringAnchored(glyphLetter(key.Name), s/2, s/2, 0.5, 0.35)
		g.faceMu.Unlock()
		if strings.HasSuffix(key.Name, "-consumed") {
			dc.DrawLine(s*0.15, s*0.85, s*0.85, s*0.15)
			dc.Stroke()
		}
		if strings.HasSuffix(key.Name, "-cost") {
			dc.DrawCircle(s*0.82, s*0.18, s*0.12)
			dc.Fill()
		}
	}
	return dc.SavePNG(path)
}

// letterFace 懒加载字母字形；font.Face 不是并发安全的，绘制时由 faceMu 串行化。
func (g *Generator) letterFace() (font.Face, error) {
	g.faceOnce.Do(func() {
		f, err := truetype.Parse(gobold.TTF)
		if err != nil {
			g.faceErr = fmt.Errorf("解析图标字体失败: %w", err)
			return
		}
		g.face = truetype.NewFace(f, &truetype.Options{Size: 30})
	})
	return g.face, g.faceErr
}

// glyphLetter 取图标名最后一段的首字母，例如 class-wizard → W，component-material-cost → M。
func glyphLetter(name string) string {
	parts := strings.Split(name, "-")
	seg := parts[len(parts)-1]
	if (seg == "cost" || seg == "consumed") && len(parts) > 1 {
		seg = parts[len(parts)-2]
	}
	if seg == "" {
		return "?"
	}
	return strings.ToUpper(seg[:1])
}

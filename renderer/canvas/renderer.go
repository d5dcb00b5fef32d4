package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/grimoire/layout"
	"github.com/ByLCY/grimoire/renderer"
)

const defaultStrokeWidth = 0.2

// Renderer draws layout results via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	imageMu sync.Mutex
	images  map[string]image.Image
}

var (
	_ renderer.Renderer     = (*Renderer)(nil)
	_ renderer.PageRenderer = (*Renderer)(nil)
	_ layout.Typesetter     = (*Renderer)(nil)
)

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving relative assets.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		baseDir:      baseDir,
		fontFamilies: map[string]*fontFamilyEntry{},
		images:       map[string]image.Image{},
	}
}

// Render 输出多页 PDF。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if err := checkResult(result); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c, err := r.paint(page, result.Resources)
		if err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPages 每页输出一个独立的 SVG 文档。
func (r *Renderer) RenderPages(result *layout.Result) ([][]byte, error) {
	if err := checkResult(result); err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(result.Pages))
	for i, page := range result.Pages {
		c, err := r.paint(page, result.Resources)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		writer := svg.New(&buf, page.Width, page.Height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入第 %d 页 SVG 失败: %w", i+1, err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

func checkResult(result *layout.Result) error {
	if result == nil {
		return fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return fmt.Errorf("缺少可渲染的页面")
	}
	return nil
}

func (r *Renderer) paint(page layout.Page, resources layout.ResourceSet) (*canvas.Canvas, error) {
	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	if err := r.drawPage(ctx, page, resources); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// TextWidth 实现 layout.Typesetter，fontSize 为 mm，返回值同样为 mm。
func (r *Renderer) TextWidth(content string, font layout.FontResource, fontSize float64) (float64, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{})
	if err != nil {
		return 0, err
	}
	return face.TextWidth(content), nil
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{})
	if err != nil {
		return nil, err
	}

	lines := greedyWrap(content, width, face, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// drawPage 先画形状再画文字与图片，最后的线段（裁切线）由布局放在 Lines 末尾。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, resources layout.ResourceSet) error {
	r.drawRects(ctx, page.Rects)
	r.drawCircles(ctx, page.Circles)
	for _, tb := range page.Texts {
		fontRes := resolveFontResource(tb.Font, resources.Fonts)
		if err := r.drawTextBox(ctx, tb, fontRes); err != nil {
			return err
		}
	}
	if err := r.drawImages(ctx, page.Images); err != nil {
		return err
	}
	r.drawLines(ctx, page.Lines)
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	face, err := r.fontFace(fontRes, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var (
		textAlign canvas.TextAlign
		anchorX   float64
	)
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		height := line.Height
		if height <= 0 {
			height = tb.LineHeight
		}
		ctx.DrawText(anchorX, cursorY+ascent, canvas.NewTextLine(face, line.Content, textAlign))
		cursorY += height
	}
	return nil
}

func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, img := range images {
		if img.Path == "" {
			continue
		}
		data, err := r.loadImage(img.Path)
		if err != nil {
			return err
		}
		width := img.Width
		if width <= 0 {
			width = float64(data.Bounds().Dx()) / 4.0
		}
		dpmm := float64(data.Bounds().Dx()) / width
		if dpmm <= 0 {
			dpmm = 1
		}
		ctx.DrawImage(img.X, img.Y, data, canvas.DPMM(dpmm))
	}
	return nil
}

// loadImage 解码并缓存图标；同一路径只读取一次。
func (r *Renderer) loadImage(orig string) (image.Image, error) {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()
	if data, ok := r.images[orig]; ok {
		return data, nil
	}
	path := orig
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对路径：%s", orig)
		}
		path = filepath.Join(r.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", orig, err)
	}
	defer file.Close()
	data, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", orig, err)
	}
	r.images[orig] = data
	return data, nil
}

func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(strokeOrDefault(ln.Width))
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		ctx.SetFillColor(fillOf(rc.FillColor))
		ctx.SetStrokeColor(colorFromLayout(rc.StrokeColor))
		ctx.SetStrokeWidth(strokeOrDefault(rc.StrokeWidth))
		ctx.DrawPath(rc.X, rc.Y, canvas.Rectangle(rc.Width, rc.Height))
	}
}

func (r *Renderer) drawCircles(ctx *canvas.Context, circles []layout.Circle) {
	for _, c := range circles {
		ctx.SetFillColor(fillOf(c.FillColor))
		ctx.SetStrokeColor(colorFromLayout(c.StrokeColor))
		ctx.SetStrokeWidth(strokeOrDefault(c.StrokeWidth))
		ctx.DrawPath(c.CX, c.CY, canvas.Circle(c.R))
	}
}

func strokeOrDefault(w float64) float64 {
	if w <= 0 {
		return defaultStrokeWidth
	}
	return w
}

func fillOf(c *layout.Color) color.Color {
	if c == nil {
		return color.RGBA{}
	}
	return colorFromLayout(*c)
}

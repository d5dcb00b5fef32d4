package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/grimoire/layout"
)

var bodyFont = layout.FontResource{Name: layout.FontBody, Src: "embed:regular"}

func TestLayoutLinesGreedyWrapsText(t *testing.T) {
	r := NewRenderer(".")

	// 这里的宽度/字号/行高均为 mm
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.2

	lines, err := r.LayoutLines("hello world again", 10, bodyFont, fontSizeMM, lineHeightMM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
}

func TestGreedyWrapHonorsNewlines(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	lines, err := r.LayoutLines("foo\n\nbar", 100, bodyFont, fontSizeMM, fontSizeMM*1.2, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Content != "" {
		t.Fatalf("expected middle line to be blank, got %q", lines[1].Content)
	}
}

// TestLineHeightsInvariant 验证首行 GapBefore 为 0，其余行为 max(lineHeight - textHeight, 0)。
func TestLineHeightsInvariant(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.3

	content := "longlonglong longlonglong longlonglong longlonglong longlonglong"
	lines, err := r.LayoutLines(content, 40, bodyFont, fontSizeMM, lineHeightMM, "")
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines for invariant test, got %d", len(lines))
	}

	textHeight := lines[0].Height
	if textHeight <= 0 {
		t.Fatalf("invalid text height: %g", textHeight)
	}
	wantLeading := math.Max(lineHeightMM-textHeight, 0)
	if lines[0].GapBefore != 0 {
		t.Fatalf("first line GapBefore must be 0, got %g", lines[0].GapBefore)
	}
	for i := 1; i < len(lines); i++ {
		if diff := math.Abs(lines[i].GapBefore - wantLeading); diff > 1e-6 {
			t.Fatalf("line %d GapBefore mismatch: got=%g want=%g", i, lines[i].GapBefore, wantLeading)
		}
		if diff := math.Abs(lines[i].Height - textHeight); diff > 1e-6 {
			t.Fatalf("line %d Height mismatch: got=%g want=%g", i, lines[i].Height, textHeight)
		}
	}
}

// TestGreedyWrapWidthLimit 验证每行宽度不超过限制（mm）。
func TestGreedyWrapWidthLimit(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	limit := 30.0
	lines, err := r.LayoutLines(strings.Repeat("a", 53), limit, bodyFont, fontSizeMM, fontSizeMM*1.2, "")
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected the long word to be split, got %d lines", len(lines))
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-6 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, ln.Width, limit)
		}
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	first := "SAMPLE-A"
	limit, err := r.TextWidth(first, bodyFont, fontSizeMM)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}

	lines, err := r.LayoutLines(first+"\nSAMPLE-B", limit, bodyFont, fontSizeMM, fontSizeMM*1.2, "")
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if got := len(lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d", got)
	}
	if lines[0].Content != first || lines[1].Content != "SAMPLE-B" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestTextWidthGrowsWithFontSize(t *testing.T) {
	r := NewRenderer("")
	small, err := r.TextWidth("Fireball", bodyFont, 2)
	if err != nil {
		t.Fatalf("TextWidth error: %v", err)
	}
	large, err := r.TextWidth("Fireball", bodyFont, 4)
	if err != nil {
		t.Fatalf("TextWidth error: %v", err)
	}
	if small <= 0 || math.Abs(large-2*small) > 0.01*large {
		t.Fatalf("width should scale linearly: small=%g large=%g", small, large)
	}
}

func samplePage(t *testing.T) layout.Page {
	t.Helper()
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.Black)
	}
	path := filepath.Join(dir, "area-sphere.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create icon: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode icon: %v", err)
	}
	f.Close()

	fill := layout.Color{R: 255, G: 255, B: 255}
	return layout.Page{
		Width:  297,
		Height: 210,
		Texts: []layout.TextBox{{
			Content: "Fireball", X: 12, Y: 12, Width: 40, FontSize: 2.6, LineHeight: 3.1,
			Font: layout.FontBold, Color: layout.Color{R: 30, G: 30, B: 30},
		}},
		Images:  []layout.ImageBox{{Path: path, X: 50, Y: 12, Width: 3, Height: 3}, {Alt: "missing"}},
		Rects:   []layout.Rect{{X: 10, Y: 10, Width: 63.5, Height: 88.9, StrokeColor: layout.Color{R: 198, G: 59, B: 43}, FillColor: &fill}},
		Circles: []layout.Circle{{CX: 16, CY: 16, R: 3}},
		Lines:   []layout.Line{{X1: 6, Y1: 10, X2: 8, Y2: 10}},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer("")
	res := &layout.Result{
		Pages:     []layout.Page{samplePage(t), {Width: 297, Height: 210}},
		Resources: layout.ResourceSet{Fonts: layout.DefaultFonts()},
		Meta:      layout.DocumentMeta{Title: "Spellbook"},
	}
	data, err := r.Render(res)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestRenderPagesProducesSVGPerPage(t *testing.T) {
	r := NewRenderer("")
	res := &layout.Result{
		Pages:     []layout.Page{samplePage(t), {Width: 279.4, Height: 215.9}},
		Resources: layout.ResourceSet{Fonts: layout.DefaultFonts()},
	}
	pages, err := r.RenderPages(res)
	if err != nil {
		t.Fatalf("RenderPages error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 svg documents, got %d", len(pages))
	}
	for i, p := range pages {
		if !bytes.Contains(p, []byte("<svg")) {
			t.Fatalf("page %d is not svg", i)
		}
	}
}

func TestRenderRejectsEmptyResult(t *testing.T) {
	r := NewRenderer("")
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
	if _, err := r.RenderPages(&layout.Result{}); err == nil {
		t.Fatalf("expected error for empty result")
	}
}

func TestRenderFailsOnUnreadableImage(t *testing.T) {
	r := NewRenderer("")
	page := layout.Page{Width: 100, Height: 100, Images: []layout.ImageBox{{Path: "relative/icon.png", Width: 3}}}
	if _, err := r.Render(&layout.Result{Pages: []layout.Page{page}}); err == nil {
		t.Fatalf("expected error for relative path without base dir")
	}
}

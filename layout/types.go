package layout

import "github.com/ByLCY/grimoire/theme"

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录排版用到的字体。
type ResourceSet struct {
	Fonts map[string]FontResource `json:"fonts"`
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:* 形式。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"` // 渲染器使用的 Family 名称
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ColorOf 把规范颜色（6 位十六进制）转换为 Color；transparent 或非法值返回 ok=false。
func ColorOf(normalized string) (Color, bool) {
	r, g, b, ok := theme.RGB(normalized)
	if !ok {
		return Color{}, false
	}
	return Color{R: r, G: g, B: b}, true
}

// Page 记录页面尺寸与最终可以直接渲染的元素（单位：mm，左上角为原点）。
type Page struct {
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Texts   []TextBox  `json:"texts"`
	Images  []ImageBox `json:"images"`
	Lines   []Line     `json:"lines,omitempty"`
	Rects   []Rect     `json:"rects,omitempty"`
	Circles []Circle   `json:"circles,omitempty"`
}

// TextBox 表示一个已经排好坐标的文本块。
type TextBox struct {
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	LineHeight float64    `json:"lineHeight"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	Lines      []TextLine `json:"lines"`
	Height     float64    `json:"height"`
	Align      string     `json:"align,omitempty"` // 文本水平对齐方式：left/center/right（默认 left）
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// ImageBox 用于描述图片位置与尺寸。Path 为空时渲染器跳过（仅记录图标需求时出现）。
type ImageBox struct {
	Path   string  `json:"path"`
	Alt    string  `json:"alt,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// 基本图形：直线、矩形、圆形（单位均为 mm）。
// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`         // mm
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Circle 表示一个圆。
type Circle struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"` // mm
	FillColor   *Color  `json:"fillColor,omitempty"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

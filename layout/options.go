package layout

// 字体资源名。Composer 只使用这四种字形。
const (
	FontBody       = "Body"
	FontBold       = "Bold"
	FontItalic     = "Italic"
	FontBoldItalic = "BoldItalic"
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	// Fonts 为空时使用 DefaultFonts。
	Fonts map[string]FontResource
	// TextColor 是正文颜色（规范颜色），为空时使用 1e1e1e。
	TextColor string
	// BodySizes 是正文各字号档位（pt），为空时使用 DefaultBodySizes。
	BodySizes []float64
	Meta      DocumentMeta
}

// DefaultBodySizes 是正文字号档位：基础字号与两级缩小字号（pt）。
var DefaultBodySizes = []float64{7.5, 6.5, 5.75}

// DefaultFonts 返回内置 Go 字体。
func DefaultFonts() map[string]FontResource {
	return map[string]FontResource{
		FontBody:       {Name: FontBody, Src: "embed:regular", Family: "Go"},
		FontBold:       {Name: FontBold, Src: "embed:bold", Style: "bold", Family: "Go"},
		FontItalic:     {Name: FontItalic, Src: "embed:italic", Style: "italic", Family: "Go"},
		FontBoldItalic: {Name: FontBoldItalic, Src: "embed:bolditalic", Style: "bold italic", Family: "Go"},
	}
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行，并测量文本宽度。
// 约定：所有长度（含字号）均为毫米。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
	TextWidth(content string, font FontResource, fontSize float64) (float64, error)
}

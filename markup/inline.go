package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// InlineKind 区分行内节点类型。
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineBold
	InlineItalic
	InlineIcon
)

func (k InlineKind) String() string {
	switch k {
	case InlineBold:
		return "bold"
	case InlineItalic:
		return "italic"
	case InlineIcon:
		return "icon"
	default:
		return "text"
	}
}

// Inline 是一个行内节点。InlineIcon 的 Icon 为图标资源名，Text 为隐藏的文本回退（复制/无障碍用）。
type Inline struct {
	Kind InlineKind `json:"kind"`
	Text string     `json:"text"`
	Icon string     `json:"icon,omitempty"`
}

// 规则顺序即优先级：粗体 > 斜体 > 占位符 > 换行；按顺序首个匹配者胜出，
// 因此紧挨占位符的 * 不会被误判。
var inlineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Bold", Pattern: `\*\*[^\n]+?\*\*`},
	{Name: "Italic", Pattern: `\*[^*\n]+?\*`},
	{Name: "Placeholder", Pattern: "`[^`\\n]+`"},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Text", Pattern: "[^*`\\n]+"},
	{Name: "Stray", Pattern: "[*`]"},
})

var (
	boldToken        = mustTokenType("Bold")
	italicToken      = mustTokenType("Italic")
	placeholderToken = mustTokenType("Placeholder")
	newlineToken     = mustTokenType("Newline")
)

// ParseInline 对一段文本做单遍、从左到右的行内替换。
func ParseInline(text string) []Inline {
	if text == "" {
		return nil
	}
	lex, err := inlineLexer.LexString("", text)
	if err != nil {
		return []Inline{{Kind: InlineText, Text: text}}
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		// Stray 规则兜底了所有字符，这里只在极端情况下触发
		return []Inline{{Kind: InlineText, Text: text}}
	}

	var out []Inline
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(out); n > 0 && out[n-1].Kind == InlineText {
			out[n-1].Text += s
			return
		}
		out = append(out, Inline{Kind: InlineText, Text: s})
	}

	for _, tok := range tokens {
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case boldToken:
			out = append(out, Inline{Kind: InlineBold, Text: tok.Value[2 : len(tok.Value)-2]})
		case italicToken:
			out = append(out, Inline{Kind: InlineItalic, Text: tok.Value[1 : len(tok.Value)-1]})
		case placeholderToken:
			name := tok.Value[1 : len(tok.Value)-1]
			if icon, ok := LookupPlaceholder(name); ok {
				out = append(out, Inline{Kind: InlineIcon, Text: name, Icon: icon})
			} else {
				appendText(name)
			}
		case newlineToken:
			appendText(" ")
		default:
			appendText(tok.Value)
		}
	}
	return out
}

// PlainText 把行内节点还原为纯文本（图标使用其文本回退）。
func PlainText(inlines []Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		b.WriteString(in.Text)
	}
	return b.String()
}

func mustTokenType(name string) lexer.TokenType {
	tt, ok := inlineLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}

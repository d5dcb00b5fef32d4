package card

import (
	"github.com/ByLCY/grimoire/icon"
	"github.com/ByLCY/grimoire/markup"
	"github.com/ByLCY/grimoire/spell"
)

// 卡片尺寸（毫米）。
const (
	Width  = 63.5
	Height = 88.9
)

// Kind 区分普通法术卡与参考（图例）伪卡。
type Kind int

const (
	KindSpell Kind = iota
	KindReference
)

// Card 包装一条记录及其渲染结果。Front/Back 只由 Renderer 与溢出处理写入，外部代码不得直接修改。
type Card struct {
	ID   string
	Kind Kind
	// Record 是卡片持有的记录快照，可以独立于记录集被编辑。
	Record spell.Record
	// OriginID 指向记录集中的原始记录；为空表示没有对应条目（例如空白自定义卡）。
	OriginID string
	Starred  bool
	Modified bool

	Front *Face
	Back  *Face
}

// Linked 表示卡片仍可「重置为原始记录」。
func (c *Card) Linked() bool {
	return c.Kind == KindSpell && c.OriginID != ""
}

// HasBack 表示卡片因溢出而拥有真实背面。
func (c *Card) HasBack() bool {
	return c.Back != nil
}

// Clone 复制卡片数据（不含渲染结果）。
func (c *Card) Clone() *Card {
	return &Card{
		ID:       c.ID,
		Kind:     c.Kind,
		Record:   c.Record.Clone(),
		OriginID: c.OriginID,
		Starred:  c.Starred,
		Modified: c.Modified,
	}
}

// Side 表示卡面朝向。
type Side int

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// View 是一次渲染/排版所依赖的全局显示状态，按值传递。
type View struct {
	Grayscale     bool
	ReferenceMode bool
}

// Face 是一面卡的可视元素：固定区域（页眉/正文/页脚）加上已解析的图标。
type Face struct {
	Side   Side
	CardID string
	// Accent/Base/Muted 为规范化颜色（6 位十六进制或 transparent）。
	Accent string
	Base   string
	Muted  string

	Starred bool
	// Blank 表示通用空白背面。
	Blank bool

	Header *Header
	Body   Body
	Footer *Footer
	// Legend 仅用于参考卡。
	Legend []IconRef

	// Inline 保存正文占位符图标，键为图标名（颜色取 Accent/Base）。
	Inline map[string]icon.Image
}

// Header 是正面页眉。
type Header struct {
	Level       string
	Name        string
	Subtitle    string
	CastingTime Chip
	Range       *Chip
	Duration    *Chip
	Targets     *Chip
	Components  []IconRef
	Material    string
}

// Chip 是带可选图标的短文本。Glyph 表示 Text 是单字母徽记而不是普通文本。
type Chip struct {
	Text  string
	Glyph bool
	Icon  *IconRef
}

// IconRef 是已解析的图标引用。Muted 表示以弱化色绘制（例如记录不具备的职业）。
type IconRef struct {
	Name  string
	Image icon.Image
	Muted bool
	Alt   string
}

// Node 是正文中可移动的最小单位（一个块级节点）。
type Node struct {
	Block        markup.Block
	HigherLevels bool
}

// Body 是正文区域。FontTier 为字号档位（0 为基础字号）；Continued 表示内容续接到背面，
// 排版时会在正面最后一段末尾追加「→」。
type Body struct {
	Trigger   string
	Nodes     []Node
	FontTier  int
	Continued bool
}

// Footer 是正面页脚装饰。
type Footer struct {
	Flags   []IconRef
	Classes []IconRef
	School  []Letter
	Source  string
}

// Letter 是学派名中的单个字符，逐字排布以便控制字距。
type Letter struct {
	Char  string
	Index int
}

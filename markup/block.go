package markup

import (
	"regexp"
	"strings"
)

// BlockKind 区分块级节点类型。
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockList
	BlockTable
	BlockEntry
)

func (k BlockKind) String() string {
	switch k {
	case BlockList:
		return "list"
	case BlockTable:
		return "table"
	case BlockEntry:
		return "entry"
	default:
		return "paragraph"
	}
}

// Block 是一个块级节点。
//   - paragraph: Inlines
//   - entry:     Label（粗体引导名）+ Inlines
//   - list:      Ordered + Items
//   - table:     Header + Rows（每个单元格是一组行内节点）
type Block struct {
	Kind    BlockKind    `json:"kind"`
	Inlines []Inline     `json:"inlines,omitempty"`
	Label   []Inline     `json:"label,omitempty"`
	Ordered bool         `json:"ordered,omitempty"`
	Items   [][]Inline   `json:"items,omitempty"`
	Header  [][]Inline   `json:"header,omitempty"`
	Rows    [][][]Inline `json:"rows,omitempty"`
}

var (
	blankLinePattern = regexp.MustCompile(`\n[ \t]*\n`)
	listMarker       = regexp.MustCompile(`^(?:[-*]|\d+\.)[ \t]+`)
	orderedMarker    = regexp.MustCompile(`^\d+\.`)
	tableSeparator   = regexp.MustCompile(`^\|?\s*:?-+:?\s*(?:\|\s*:?-+:?\s*)*\|?\s*$`)
	entryLead        = regexp.MustCompile(`^\*\*([^*\n]+?)\*\*[ \t]*(.*)$`)
)

// Render 把受限的类 markdown 文本转换为块级节点序列。纯函数，空输入返回空序列。
func Render(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var blocks []Block
	for _, chunk := range blankLinePattern.Split(text, -1) {
		chunk = strings.Trim(chunk, "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		blocks = append(blocks, renderBlock(chunk))
	}
	return blocks
}

func renderBlock(chunk string) Block {
	lines := strings.Split(chunk, "\n")
	if tb, ok := parseTable(lines); ok {
		return tb
	}
	if listMarker.MatchString(lines[0]) {
		return parseList(lines)
	}
	if len(lines) > 1 {
		if m := entryLead.FindStringSubmatch(lines[0]); m != nil {
			rest := strings.Join(append([]string{m[2]}, lines[1:]...), "\n")
			return Block{
				Kind:    BlockEntry,
				Label:   []Inline{{Kind: InlineBold, Text: m[1]}},
				Inlines: ParseInline(strings.TrimLeft(rest, "\n ")),
			}
		}
	}
	return Block{Kind: BlockParagraph, Inlines: ParseInline(chunk)}
}

// parseTable 需要表头行 + 分隔行（丢弃）+ 零或多行数据；缺少分隔行时回落为段落。
func parseTable(lines []string) (Block, bool) {
	if len(lines) < 2 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "|") {
		return Block{}, false
	}
	if !tableSeparator.MatchString(strings.TrimSpace(lines[1])) {
		return Block{}, false
	}
	tb := Block{Kind: BlockTable, Header: splitCells(lines[0])}
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tb.Rows = append(tb.Rows, splitCells(line))
	}
	return tb, true
}

func splitCells(line string) [][]Inline {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if n := len(parts); n > 0 && strings.TrimSpace(parts[n-1]) == "" {
		parts = parts[:n-1]
	}
	cells := make([][]Inline, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, ParseInline(strings.TrimSpace(p)))
	}
	return cells
}

// parseList 只在新行以列表标记开头时切分条目，因此支持多行条目。
func parseList(lines []string) Block {
	b := Block{Kind: BlockList, Ordered: orderedMarker.MatchString(lines[0])}
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		b.Items = append(b.Items, ParseInline(strings.Join(current, "\n")))
		current = nil
	}
	for _, line := range lines {
		if loc := listMarker.FindStringIndex(line); loc != nil {
			flush()
			current = append(current, line[loc[1]:])
			continue
		}
		current = append(current, strings.TrimSpace(line))
	}
	flush()
	return b
}

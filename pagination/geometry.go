package pagination

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ByLCY/grimoire/card"
)

// 页面几何常量（毫米）。
const (
	PageMargin = 10.0
	CardGap    = 1.0
	MarkGutter = 2.0
	MarkLength = 4.0
)

// Size 是一种纸张规格，宽高按横向摆放给出。
type Size struct {
	ID     string
	Width  float64
	Height float64
}

var sizes = map[string]Size{
	"a4":     {ID: "a4", Width: 297, Height: 210},
	"letter": {ID: "letter", Width: 279.4, Height: 215.9},
}

// LookupSize 按规格名查找纸张，大小写不敏感。
func LookupSize(id string) (Size, error) {
	s, ok := sizes[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Size{}, fmt.Errorf("未知纸张规格 %q（可选：%s）", id, strings.Join(SizeIDs(), ", "))
	}
	return s, nil
}

// SizeIDs 返回所有支持的纸张规格名。
func SizeIDs() []string {
	ids := make([]string, 0, len(sizes))
	for id := range sizes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Mark 是一条裁切线（毫米，左上角为原点）。
type Mark struct {
	X1, Y1, X2, Y2 float64
}

// Geometry 描述一种纸张上的卡片网格。
type Geometry struct {
	Size    Size
	Columns int
	Rows    int
	// OriginX/OriginY 是网格左上角，网格在页面内居中。
	OriginX float64
	OriginY float64
}

// ComputeGeometry 用可用空间除以 (卡片尺寸 + 间距) 向下取整得到行列数。
func ComputeGeometry(size Size) Geometry {
	availW := size.Width - 2*PageMargin
	availH := size.Height - 2*PageMargin
	cols := int(math.Floor(availW / (card.Width + CardGap)))
	rows := int(math.Floor(availH / (card.Height + CardGap)))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := Geometry{Size: size, Columns: cols, Rows: rows}
	g.OriginX = (size.Width - g.gridWidth()) / 2
	g.OriginY = (size.Height - g.gridHeight()) / 2
	return g
}

func (g Geometry) gridWidth() float64 {
	return float64(g.Columns)*card.Width + float64(g.Columns-1)*CardGap
}

func (g Geometry) gridHeight() float64 {
	return float64(g.Rows)*card.Height + float64(g.Rows-1)*CardGap
}

// SlotsPerPage = 行数 × 列数。
func (g Geometry) SlotsPerPage() int { return g.Columns * g.Rows }

// PagesFor 返回容纳 slots 个槽位所需的页数。
func (g Geometry) PagesFor(slots int) int {
	per := g.SlotsPerPage()
	return (slots + per - 1) / per
}

// SlotPosition 返回全局槽位号对应的页码与卡片左上角坐标。
func (g Geometry) SlotPosition(index int) (page int, x, y float64) {
	per := g.SlotsPerPage()
	page = index / per
	local := index % per
	col := local % g.Columns
	row := local / g.Columns
	x = g.OriginX + float64(col)*(card.Width+CardGap)
	y = g.OriginY + float64(row)*(card.Height+CardGap)
	return page, x, y
}

// CutMarks 在每条卡片边界的延长线上、网格外侧 MarkGutter 处画短刻线。
// 刻线对齐卡片边缘而非网格间距，因此每个间隙两侧各有一条。
func (g Geometry) CutMarks() []Mark {
	top := g.OriginY
	bottom := g.OriginY + g.gridHeight()
	left := g.OriginX
	right := g.OriginX + g.gridWidth()

	var marks []Mark
	for c := 0; c < g.Columns; c++ {
		x0 := g.OriginX + float64(c)*(card.Width+CardGap)
		for _, x := range []float64{x0, x0 + card.Width} {
			marks = append(marks,
				Mark{X1: x, Y1: top - MarkGutter - MarkLength, X2: x, Y2: top - MarkGutter},
				Mark{X1: x, Y1: bottom + MarkGutter, X2: x, Y2: bottom + MarkGutter + MarkLength},
			)
		}
	}
	for r := 0; r < g.Rows; r++ {
		y0 := g.OriginY + float64(r)*(card.Height+CardGap)
		for _, y := range []float64{y0, y0 + card.Height} {
			marks = append(marks,
				Mark{X1: left - MarkGutter - MarkLength, Y1: y, X2: left - MarkGutter, Y2: y},
				Mark{X1: right + MarkGutter, Y1: y, X2: right + MarkGutter + MarkLength, Y2: y},
			)
		}
	}
	return marks
}

package pagination

import (
	"sync"

	"github.com/ByLCY/grimoire/card"
)

// SlotKind 表示槽位里放的是什么。
type SlotKind int

const (
	// SlotEmpty 是末页未用到的槽位。
	SlotEmpty SlotKind = iota
	SlotFront
	SlotBack
	// SlotDefaultBack 是为统一双面打印生成的通用背面。
	SlotDefaultBack
	// SlotSpacer 是并排模式下为避免正反面跨行而插入的空位。
	SlotSpacer
)

func (k SlotKind) String() string {
	switch k {
	case SlotFront:
		return "front"
	case SlotBack:
		return "back"
	case SlotDefaultBack:
		return "default-back"
	case SlotSpacer:
		return "spacer"
	default:
		return "empty"
	}
}

// MarshalText 让调试 JSON 输出槽位类型名称。
func (k SlotKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Slot 是网格中的一个位置，X/Y 为卡片左上角（毫米）。
type Slot struct {
	Kind   SlotKind   `json:"kind"`
	CardID string     `json:"cardId,omitempty"`
	Face   *card.Face `json:"-"`
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
}

// Page 是一页卡片网格加裁切线；内容完全由排版推导，每次排版重建。
type Page struct {
	Index int    `json:"index"`
	Size  Size   `json:"size"`
	Slots []Slot `json:"slots"`
	Marks []Mark `json:"marks"`
}

// HostStats 统计页面的创建与回收次数。
type HostStats struct {
	Created int
	Removed int
}

// Host 持有页面容器。页面按需增删：多余的页被移除，缺少的页新建并生成当前纸张的裁切线。
type Host struct {
	mu       sync.Mutex
	pages    []*Page
	geometry Geometry
	stats    HostStats
}

func NewHost() *Host { return &Host{} }

// Pages 返回当前页面列表的副本，页面本身只读。
func (h *Host) Pages() []*Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Page, len(h.pages))
	copy(out, h.pages)
	return out
}

// Geometry 返回最近一次排版使用的网格。
func (h *Host) Geometry() Geometry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.geometry
}

func (h *Host) Stats() HostStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// apply 把页数调整为 ceil(len(placed)/每页槽位) 并写入槽位。
func (h *Host) apply(g Geometry, placed []Slot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	need := g.PagesFor(len(placed))
	if len(h.pages) > need {
		h.stats.Removed += len(h.pages) - need
		h.pages = h.pages[:need]
	}
	// 纸张变化后保留下来的页面也要换成新的裁切线。
	if h.geometry != g {
		for _, p := range h.pages {
			p.Size = g.Size
			p.Marks = g.CutMarks()
		}
	}
	for len(h.pages) < need {
		h.pages = append(h.pages, &Page{Index: len(h.pages), Size: g.Size, Marks: g.CutMarks()})
		h.stats.Created++
	}
	h.geometry = g

	per := g.SlotsPerPage()
	for i, p := range h.pages {
		p.Slots = make([]Slot, per)
		for j := range p.Slots {
			_, x, y := g.SlotPosition(i*per + j)
			p.Slots[j] = Slot{Kind: SlotEmpty, X: x, Y: y}
		}
	}
	for idx, s := range placed {
		page, x, y := g.SlotPosition(idx)
		s.X, s.Y = x, y
		h.pages[page].Slots[idx%per] = s
	}
}

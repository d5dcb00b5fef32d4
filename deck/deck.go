package deck

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/spell"
)

// Deck 是有序的工作牌组。插入顺序是排序前的基准顺序。
// Deck 不是并发安全的；跨 goroutine 传递时使用 Snapshot。
type Deck struct {
	lib   *Library
	opts  Options
	cards []*card.Card
}

func New(lib *Library, opts Options) *Deck {
	return &Deck{lib: lib, opts: opts.withDefaults()}
}

// BlankRecord 是空白自定义卡的初始内容。
func BlankRecord() spell.Record {
	return spell.Record{
		Name:        "New Spell",
		School:      spell.SchoolAbjuration,
		CastingTime: spell.CastingTime{Amount: 1, Unit: spell.TimeAction},
		Range:       spell.SelfRange{},
		Duration:    spell.InstantDuration{},
	}
}

// Add 把记录集中的一条记录加入牌组，新卡片保留指向原记录的链接。
func (d *Deck) Add(recordID string) (*card.Card, error) {
	e, ok := d.lib.Get(recordID)
	if !ok {
		return nil, fmt.Errorf("记录 %s 不存在", recordID)
	}
	c := &card.Card{ID: d.opts.NewID(), Record: e.Record.Clone(), OriginID: e.ID}
	d.cards = append(d.cards, c)
	return c, nil
}

// AddBlank 加入一张没有原记录的空白卡。
func (d *Deck) AddBlank() *card.Card {
	c := &card.Card{ID: d.opts.NewID(), Record: BlankRecord(), Modified: true}
	d.cards = append(d.cards, c)
	return c
}

// AddReference 加入一张参考（图例）伪卡。
func (d *Deck) AddReference() *card.Card {
	c := &card.Card{ID: d.opts.NewID(), Kind: card.KindReference}
	d.cards = append(d.cards, c)
	return c
}

func (d *Deck) index(cardID string) int {
	for i, c := range d.cards {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// Find 按 ID 查找卡片。
func (d *Deck) Find(cardID string) (*card.Card, bool) {
	i := d.index(cardID)
	if i < 0 {
		return nil, false
	}
	return d.cards[i], true
}

// Remove 移除卡片，返回是否找到。
func (d *Deck) Remove(cardID string) bool {
	i := d.index(cardID)
	if i < 0 {
		return false
	}
	d.cards = append(d.cards[:i], d.cards[i+1:]...)
	return true
}

// Duplicate 复制卡片并插在原卡之后；副本保留原记录链接与修改状态。
func (d *Deck) Duplicate(cardID string) (*card.Card, error) {
	i := d.index(cardID)
	if i < 0 {
		return nil, fmt.Errorf("卡片 %s 不存在", cardID)
	}
	c := d.cards[i].Clone()
	c.ID = d.opts.NewID()
	d.cards = append(d.cards[:i+1], append([]*card.Card{c}, d.cards[i+1:]...)...)
	return c, nil
}

// Move 把卡片移动到 index（越界时取边界）。
func (d *Deck) Move(cardID string, index int) error {
	i := d.index(cardID)
	if i < 0 {
		return fmt.Errorf("卡片 %s 不存在", cardID)
	}
	c := d.cards[i]
	rest := append(d.cards[:i:i], d.cards[i+1:]...)
	index = max(0, min(index, len(rest)))
	d.cards = append(rest[:index:index], append([]*card.Card{c}, rest[index:]...)...)
	return nil
}

// Update 替换卡片的记录快照并清除渲染结果。有链接的卡片与原记录不同即视为已修改。
func (d *Deck) Update(cardID string, rec spell.Record) error {
	c, ok := d.Find(cardID)
	if !ok {
		return fmt.Errorf("卡片 %s 不存在", cardID)
	}
	if c.Kind == card.KindReference {
		return fmt.Errorf("参考卡 %s 不可编辑", cardID)
	}
	c.Record = rec.Clone()
	c.Modified = true
	if orig, ok := d.lib.Get(c.OriginID); ok && c.OriginID != "" {
		c.Modified = !spell.Equal(orig.Record, rec)
	}
	c.Front, c.Back = nil, nil
	return nil
}

// ResetToOriginal 用原记录覆盖卡片内容。卡片没有链接或原记录已不存在时不做任何事并返回 false。
func (d *Deck) ResetToOriginal(cardID string) bool {
	c, ok := d.Find(cardID)
	if !ok || !c.Linked() {
		return false
	}
	orig, ok := d.lib.Get(c.OriginID)
	if !ok {
		d.opts.Logger.Debug("原记录不存在，忽略重置", "card", cardID, "origin", c.OriginID)
		return false
	}
	c.Record = orig.Record.Clone()
	c.Modified = false
	c.Front, c.Back = nil, nil
	return true
}

// Unlink 切断卡片与原记录的链接，此后无法重置。
func (d *Deck) Unlink(cardID string) bool {
	c, ok := d.Find(cardID)
	if !ok || c.OriginID == "" {
		return false
	}
	c.OriginID = ""
	c.Modified = true
	return true
}

// ToggleStar 切换高亮标记，返回新的状态。渲染结果随之失效。
func (d *Deck) ToggleStar(cardID string) (bool, error) {
	c, ok := d.Find(cardID)
	if !ok {
		return false, fmt.Errorf("卡片 %s 不存在", cardID)
	}
	c.Starred = !c.Starred
	c.Front, c.Back = nil, nil
	return c.Starred, nil
}

// Cards 返回牌组（插入顺序）的浅拷贝。
func (d *Deck) Cards() []*card.Card {
	out := make([]*card.Card, len(d.cards))
	copy(out, d.cards)
	return out
}

func (d *Deck) Len() int { return len(d.cards) }

// Snapshot 深拷贝全部卡片（不含渲染结果），供后台排版使用。
func (d *Deck) Snapshot() []*card.Card {
	out := make([]*card.Card, len(d.cards))
	for i, c := range d.cards {
		out[i] = c.Clone()
	}
	return out
}

// Ordered 返回排版顺序：参考卡在前，然后是没有链接的卡，最后是按 order 排序的有链接卡。
// 前两组保持插入顺序。
func Ordered(cards []*card.Card, order Sort, referenceMode bool) []*card.Card {
	var refs, blanks, linked []*card.Card
	for _, c := range cards {
		switch {
		case c.Kind == card.KindReference:
			refs = append(refs, c)
		case !c.Linked():
			blanks = append(blanks, c)
		default:
			linked = append(linked, c)
		}
	}
	sort.SliceStable(linked, func(i, j int) bool {
		return less(linked[i].Record, linked[j].Record, order, referenceMode)
	})
	out := make([]*card.Card, 0, len(cards))
	out = append(out, refs...)
	out = append(out, blanks...)
	return append(out, linked...)
}

// ExportModified 导出被修改过或没有链接的卡片记录（规范格式，不含内部字段）。
func (d *Deck) ExportModified(w io.Writer, referenceMode bool) error {
	var recs []spell.Record
	for _, c := range d.cards {
		if c.Kind == card.KindReference {
			continue
		}
		if c.Modified || !c.Linked() {
			recs = append(recs, exportRecord(c.Record, referenceMode))
		}
	}
	if err := spell.EncodeList(w, recs); err != nil {
		return fmt.Errorf("导出修改过的卡片失败: %w", err)
	}
	return nil
}

// Label 返回卡片在列表中的显示名。
func Label(c *card.Card, referenceMode bool) string {
	if c.Kind == card.KindReference {
		return "Reference"
	}
	return strings.TrimSpace(spell.DisplayName(c.Record, referenceMode))
}

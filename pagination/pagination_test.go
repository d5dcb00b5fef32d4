package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/grimoire/card"
)

type fakeFaces struct {
	legends      int
	defaultBacks int
}

func (f *fakeFaces) Legend(context.Context) (*card.Face, *card.Face, error) {
	f.legends++
	return &card.Face{Side: card.SideFront}, &card.Face{Side: card.SideBack}, nil
}

func (f *fakeFaces) DefaultBack(context.Context) (*card.Face, error) {
	f.defaultBacks++
	return &card.Face{Side: card.SideBack, Blank: true}, nil
}

func spellCard(id string, withBack bool) *card.Card {
	c := &card.Card{ID: id, Front: &card.Face{Side: card.SideFront, CardID: id}}
	if withBack {
		c.Back = &card.Face{Side: card.SideBack, CardID: id}
	}
	return c
}

func deckOf(n int, withBack bool) []*card.Card {
	out := make([]*card.Card, n)
	for i := range out {
		out[i] = spellCard(fmt.Sprintf("c%d", i), withBack)
	}
	return out
}

type slotView struct {
	Kind   SlotKind
	CardID string
}

func flatten(pages []*Page) []slotView {
	var out []slotView
	for _, p := range pages {
		for _, s := range p.Slots {
			out = append(out, slotView{s.Kind, s.CardID})
		}
	}
	return out
}

func TestGeometryForSupportedSizes(t *testing.T) {
	for _, id := range SizeIDs() {
		size, err := LookupSize(id)
		require.NoError(t, err)
		g := ComputeGeometry(size)
		assert.Equal(t, 4, g.Columns, id)
		assert.Equal(t, 2, g.Rows, id)
		assert.Equal(t, 8, g.SlotsPerPage(), id)
		assert.InDelta(t, size.Width-g.OriginX, g.OriginX+g.gridWidth(), 1e-9, "grid should be centered horizontally")
		assert.GreaterOrEqual(t, g.OriginX, PageMargin)
		assert.GreaterOrEqual(t, g.OriginY, PageMargin)
	}
	_, err := LookupSize("tabloid")
	assert.Error(t, err)
	_, err = LookupSize(" A4 ")
	assert.NoError(t, err)
}

func TestSlotPositionAndPages(t *testing.T) {
	size, _ := LookupSize("a4")
	g := ComputeGeometry(size)
	assert.Equal(t, 0, g.PagesFor(0))
	assert.Equal(t, 1, g.PagesFor(8))
	assert.Equal(t, 2, g.PagesFor(9))

	page, x, y := g.SlotPosition(13)
	assert.Equal(t, 1, page)
	assert.InDelta(t, g.OriginX+(card.Width+CardGap), x, 1e-9)
	assert.InDelta(t, g.OriginY+(card.Height+CardGap), y, 1e-9)
}

func TestCutMarksSitOutsideGrid(t *testing.T) {
	size, _ := LookupSize("letter")
	g := ComputeGeometry(size)
	marks := g.CutMarks()
	require.Len(t, marks, g.Columns*4+g.Rows*4)

	top, left := g.OriginY, g.OriginX
	bottom, right := g.OriginY+g.gridHeight(), g.OriginX+g.gridWidth()
	for _, m := range marks {
		if m.X1 == m.X2 {
			assert.InDelta(t, MarkLength, m.Y2-m.Y1, 1e-9)
			outside := m.Y2 <= top-MarkGutter+1e-9 || m.Y1 >= bottom+MarkGutter-1e-9
			assert.True(t, outside, "vertical mark overlaps grid: %+v", m)
		} else {
			assert.InDelta(t, MarkLength, m.X2-m.X1, 1e-9)
			outside := m.X2 <= left-MarkGutter+1e-9 || m.X1 >= right+MarkGutter-1e-9
			assert.True(t, outside, "horizontal mark overlaps grid: %+v", m)
		}
	}
	// 第二列的左边缘有刻线，与间距无关。
	second := g.OriginX + float64(1)*(card.Width+CardGap)
	assert.Contains(t, marks, Mark{X1: second, Y1: top - MarkGutter - MarkLength, X2: second, Y2: top - MarkGutter})
}

func TestFiveCardsWithBacksFillTwoPages(t *testing.T) {
	host := NewHost()
	e := NewEngine(&fakeFaces{}, nil)
	sum, err := e.Layout(context.Background(), deckOf(5, true), "a4", host, Options{})
	require.NoError(t, err)
	assert.Equal(t, Summary{Cards: 5, Slots: 10, Pages: 2}, sum)

	pages := host.Pages()
	require.Len(t, pages, 2)
	slots := flatten(pages)
	for i := 0; i < 10; i += 2 {
		assert.Equal(t, SlotFront, slots[i].Kind)
		assert.Equal(t, SlotBack, slots[i+1].Kind)
		assert.Equal(t, slots[i].CardID, slots[i+1].CardID)
	}
	for _, s := range slots[10:] {
		assert.Equal(t, SlotEmpty, s.Kind)
	}
	assert.NotEmpty(t, pages[1].Marks)
}

func TestSideBySideInsertsSpacerAtRowEnd(t *testing.T) {
	cards := []*card.Card{spellCard("a", false), spellCard("b", false), spellCard("c", false), spellCard("d", true)}
	host := NewHost()
	_, err := NewEngine(&fakeFaces{}, nil).Layout(context.Background(), cards, "a4", host, Options{SideBySide: true})
	require.NoError(t, err)

	got := flatten(host.Pages())[:6]
	assert.Equal(t, []slotView{
		{SlotFront, "a"}, {SlotFront, "b"}, {SlotFront, "c"},
		{SlotSpacer, ""},
		{SlotFront, "d"}, {SlotBack, "d"},
	}, got)
}

func TestDefaultBackSuppressesSideBySide(t *testing.T) {
	cards := []*card.Card{spellCard("a", false), spellCard("b", true), spellCard("c", false)}
	faces := &fakeFaces{}
	host := NewHost()
	sum, err := NewEngine(faces, nil).Layout(context.Background(), cards, "a4", host, Options{SideBySide: true, DefaultCardBack: true})
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Slots)
	assert.Equal(t, 1, faces.defaultBacks, "default back is generated once per pass")

	got := flatten(host.Pages())[:6]
	assert.Equal(t, []slotView{
		{SlotFront, "a"}, {SlotDefaultBack, "a"},
		{SlotFront, "b"}, {SlotBack, "b"},
		{SlotFront, "c"}, {SlotDefaultBack, "c"},
	}, got)
}

func TestReferenceCardExpandsIntoLegendPair(t *testing.T) {
	faces := &fakeFaces{}
	cards := []*card.Card{{ID: "ref", Kind: card.KindReference}, spellCard("x", false)}
	host := NewHost()
	e := NewEngine(faces, nil)
	for i := 0; i < 2; i++ {
		_, err := e.Layout(context.Background(), cards, "a4", host, Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, faces.legends, "legend is regenerated on every pass")

	slots := host.Pages()[0].Slots
	assert.Equal(t, SlotFront, slots[0].Kind)
	assert.Equal(t, SlotBack, slots[1].Kind)
	assert.Equal(t, "ref", slots[1].Face.CardID)
	assert.Equal(t, SlotFront, slots[2].Kind)
}

func TestLayoutIsIdempotent(t *testing.T) {
	cards := append(deckOf(3, true), deckOf(4, false)...)
	host := NewHost()
	e := NewEngine(&fakeFaces{}, nil)
	opts := Options{SideBySide: true}

	_, err := e.Layout(context.Background(), cards, "letter", host, opts)
	require.NoError(t, err)
	first := flatten(host.Pages())
	_, err = e.Layout(context.Background(), cards, "letter", host, opts)
	require.NoError(t, err)
	assert.Equal(t, first, flatten(host.Pages()))
	assert.Equal(t, HostStats{Created: 2}, host.Stats())
}

func TestHostRecyclesPages(t *testing.T) {
	host := NewHost()
	e := NewEngine(&fakeFaces{}, nil)
	_, err := e.Layout(context.Background(), deckOf(10, true), "a4", host, Options{})
	require.NoError(t, err)
	before := host.Pages()
	require.Len(t, before, 3)

	_, err = e.Layout(context.Background(), deckOf(3, false), "a4", host, Options{})
	require.NoError(t, err)
	after := host.Pages()
	require.Len(t, after, 1)
	assert.Same(t, before[0], after[0])
	assert.Equal(t, HostStats{Created: 3, Removed: 2}, host.Stats())

	_, err = e.Layout(context.Background(), deckOf(9, false), "letter", host, Options{})
	require.NoError(t, err)
	pages := host.Pages()
	require.Len(t, pages, 2)
	letter := ComputeGeometry(sizes["letter"])
	for _, p := range pages {
		assert.Equal(t, "letter", p.Size.ID)
		assert.Equal(t, letter.CutMarks(), p.Marks)
	}

	_, err = e.Layout(context.Background(), nil, "letter", host, Options{})
	require.NoError(t, err)
	assert.Empty(t, host.Pages())
}

func TestLayoutErrors(t *testing.T) {
	e := NewEngine(&fakeFaces{}, nil)
	_, err := e.Layout(context.Background(), []*card.Card{{ID: "raw"}}, "a4", NewHost(), Options{})
	assert.ErrorContains(t, err, "raw")

	_, err = e.Layout(context.Background(), nil, "a3", NewHost(), Options{})
	assert.Error(t, err)

	_, err = e.Layout(context.Background(), nil, "a4", nil, Options{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Layout(ctx, deckOf(1, false), "a4", NewHost(), Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

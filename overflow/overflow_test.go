package overflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/markup"
)

// scriptedMeasurer 以「每个档位可容纳的节点数」模拟测量结果。
type scriptedMeasurer struct {
	front []int
	back  []int
	err   error
	calls int
}

func (m *scriptedMeasurer) Overflows(face *card.Face) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	caps := m.front
	if face.Side == card.SideBack {
		caps = m.back
	}
	return len(face.Body.Nodes) > caps[face.Body.FontTier], nil
}

func newCard(n int) (*card.Card, []card.Node) {
	nodes := make([]card.Node, n)
	for i := range nodes {
		nodes[i] = card.Node{Block: markup.Block{
			Kind:    markup.BlockParagraph,
			Inlines: []markup.Inline{{Kind: markup.InlineText, Text: fmt.Sprintf("p%d", i)}},
		}}
	}
	original := append([]card.Node(nil), nodes...)
	c := &card.Card{ID: "c", Front: &card.Face{Side: card.SideFront, CardID: "c", Body: card.Body{Nodes: nodes}}}
	return c, original
}

func contents(c *card.Card) []card.Node {
	out := append([]card.Node(nil), c.Front.Body.Nodes...)
	if c.Back != nil {
		out = append(out, c.Back.Body.Nodes...)
	}
	return out
}

func TestResolveFitsWithoutChanges(t *testing.T) {
	c, original := newCard(3)
	res, err := NewResolver(&scriptedMeasurer{front: []int{5, 6, 7}, back: []int{5, 6, 7}}, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, Resolution{}, res)
	assert.Nil(t, c.Back)
	assert.False(t, c.Front.Body.Continued)
	assert.Equal(t, original, contents(c))
}

func TestResolveSmallerFontAvoidsBack(t *testing.T) {
	c, _ := newCard(6)
	res, err := NewResolver(&scriptedMeasurer{front: []int{5, 6, 7}, back: []int{5, 6, 7}}, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tier)
	assert.Nil(t, c.Back)
	assert.Equal(t, 1, c.Front.Body.FontTier)
}

func TestResolveMovesTrailingNodesToBack(t *testing.T) {
	c, original := newCard(5)
	res, err := NewResolver(&scriptedMeasurer{front: []int{3, 3, 3}, back: []int{5, 5, 5}}, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, Resolution{Tier: 0, Moved: 2}, res)
	require.NotNil(t, c.Back)
	assert.Len(t, c.Front.Body.Nodes, 3)
	assert.Equal(t, original[3:], c.Back.Body.Nodes)
	assert.True(t, c.Front.Body.Continued)
	assert.Equal(t, card.SideBack, c.Back.Side)
	assert.Equal(t, original, contents(c))
}

func TestResolveEscalatesWhenBackOverflows(t *testing.T) {
	c, original := newCard(10)
	m := &scriptedMeasurer{front: []int{3, 4, 5}, back: []int{3, 6, 5}}
	res, err := NewResolver(m, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Tier)
	assert.Equal(t, 6, res.Moved)
	assert.False(t, res.Unresolved)
	assert.Len(t, c.Front.Body.Nodes, 4)
	assert.Equal(t, 1, c.Back.Body.FontTier)
	assert.Equal(t, original, contents(c))
}

func TestResolveAcceptsSmallestTier(t *testing.T) {
	c, original := newCard(20)
	res, err := NewResolver(&scriptedMeasurer{front: []int{2, 3, 4}, back: []int{2, 3, 4}}, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Tier)
	assert.True(t, res.Unresolved)
	require.NotNil(t, c.Back)
	assert.Len(t, c.Front.Body.Nodes, 4)
	assert.Len(t, c.Back.Body.Nodes, 16)
	assert.Equal(t, original, contents(c), "内容必须无损")
}

func TestResolveWithoutMovableNodes(t *testing.T) {
	c, _ := newCard(0)
	res, err := NewResolver(&scriptedMeasurer{front: []int{-1, -1, -1}, back: []int{5, 5, 5}}, Options{}).Resolve(c)
	require.NoError(t, err)
	assert.True(t, res.Unresolved)
	assert.Equal(t, 2, res.Tier)
	assert.Nil(t, c.Back)
	assert.False(t, c.Front.Body.Continued)
}

func TestResolveIsRepeatable(t *testing.T) {
	c, original := newCard(5)
	r := NewResolver(&scriptedMeasurer{front: []int{3, 3, 3}, back: []int{5, 5, 5}}, Options{})
	first, err := r.Resolve(c)
	require.NoError(t, err)
	second, err := r.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, original, contents(c))
}

func TestResolvePropagatesMeasureError(t *testing.T) {
	c, _ := newCard(2)
	boom := errors.New("boom")
	_, err := NewResolver(&scriptedMeasurer{err: boom}, Options{}).Resolve(c)
	assert.ErrorIs(t, err, boom)
}

func TestResolveRequiresRenderedFront(t *testing.T) {
	_, err := NewResolver(&scriptedMeasurer{}, Options{}).Resolve(&card.Card{ID: "x"})
	assert.Error(t, err)
}

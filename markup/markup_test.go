package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInlineOrder(t *testing.T) {
	got := ParseInline("A `fire damage` hits for **8** *force*.")
	want := []Inline{
		{Kind: InlineText, Text: "A "},
		{Kind: InlineIcon, Text: "fire damage", Icon: "damage-fire"},
		{Kind: InlineText, Text: " hits for "},
		{Kind: InlineBold, Text: "8"},
		{Kind: InlineText, Text: " "},
		{Kind: InlineItalic, Text: "force"},
		{Kind: InlineText, Text: "."},
	}
	assert.Equal(t, want, got)
}

func TestParseInlinePlaceholderCaseInsensitive(t *testing.T) {
	got := ParseInline("`Fire Damage`")
	require.Len(t, got, 1)
	assert.Equal(t, InlineIcon, got[0].Kind)
	assert.Equal(t, "damage-fire", got[0].Icon)
	assert.Equal(t, "Fire Damage", got[0].Text)
}

func TestParseInlineUnknownPlaceholderIsText(t *testing.T) {
	got := ParseInline("roll `1d20` now")
	assert.Equal(t, []Inline{{Kind: InlineText, Text: "roll 1d20 now"}}, got)
}

func TestParseInlineStarNextToPlaceholder(t *testing.T) {
	got := ParseInline("*`cold`")
	require.Len(t, got, 2)
	assert.Equal(t, Inline{Kind: InlineText, Text: "*"}, got[0])
	assert.Equal(t, InlineIcon, got[1].Kind)
}

func TestParseInlineCollapsesNewlines(t *testing.T) {
	got := ParseInline("one\ntwo")
	assert.Equal(t, []Inline{{Kind: InlineText, Text: "one two"}}, got)
}

func TestRenderEmpty(t *testing.T) {
	assert.Empty(t, Render(""))
	assert.Empty(t, Render("  \n\n "))
}

func TestRenderBlocks(t *testing.T) {
	src := "First paragraph\ncontinues.\n\n" +
		"- one\n  still one\n- two\n\n" +
		"1. first\n2. second\n\n" +
		"| d6 | Effect |\n|---|---|\n| 1 | Fire |\n| 2 | Ice |\n\n" +
		"**Entry Name.**\nEntry body."
	blocks := Render(src)
	require.Len(t, blocks, 5)

	assert.Equal(t, BlockParagraph, blocks[0].Kind)
	assert.Equal(t, "First paragraph continues.", PlainText(blocks[0].Inlines))

	assert.Equal(t, BlockList, blocks[1].Kind)
	assert.False(t, blocks[1].Ordered)
	require.Len(t, blocks[1].Items, 2)
	assert.Equal(t, "one still one", PlainText(blocks[1].Items[0]))

	assert.True(t, blocks[2].Ordered)
	require.Len(t, blocks[2].Items, 2)

	assert.Equal(t, BlockTable, blocks[3].Kind)
	require.Len(t, blocks[3].Header, 2)
	assert.Equal(t, "Effect", PlainText(blocks[3].Header[1]))
	require.Len(t, blocks[3].Rows, 2)
	assert.Equal(t, "Ice", PlainText(blocks[3].Rows[1][1]))

	assert.Equal(t, BlockEntry, blocks[4].Kind)
	assert.Equal(t, "Entry Name.", PlainText(blocks[4].Label))
	assert.Equal(t, "Entry body.", PlainText(blocks[4].Inlines))
}

func TestRenderTableWithoutSeparatorFallsBack(t *testing.T) {
	blocks := Render("| a | b |\n| c | d |")
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockParagraph, blocks[0].Kind)
}

func TestLegendDeduplicatesIcons(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Legend() {
		assert.False(t, seen[e.Icon], "icon %s listed twice", e.Icon)
		seen[e.Icon] = true
	}
	assert.True(t, seen["damage-fire"])
}

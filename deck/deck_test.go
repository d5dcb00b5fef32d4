package deck

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/grimoire/card"
	"github.com/ByLCY/grimoire/spell"
)

const canonical = `[
  {"name": "Fireball", "source": "PHB", "level": 3, "school": "evocation", "time": {"amount": 1, "unit": "action"},
   "range": {"origin": "point", "distance": 150, "unit": "feet"}, "duration": {"type": "instant"}, "classes": ["wizard"]},
  {"name": "Fireball", "source": "XPHB", "level": 3, "school": "evocation", "time": {"amount": 1, "unit": "action"},
   "range": {"origin": "point", "distance": 150, "unit": "feet"}, "duration": {"type": "instant"}, "classes": ["wizard"]},
  {"name": "Shield", "source": "PHB", "level": 1, "school": "abjuration", "reference": "Arcane Ward", "time": {"amount": 1, "unit": "reaction", "condition": "when you are hit"},
   "range": {"origin": "self"}, "duration": {"type": "timed", "amount": 1, "unit": "round"}, "classes": ["wizard", "sorcerer"]},
  {"name": "bless", "source": "PHB", "level": 1, "school": "enchantment", "reference": true, "concentration": true, "time": {"amount": 1, "unit": "action"},
   "range": {"origin": "point", "distance": 30, "unit": "feet"}, "duration": {"type": "timed", "amount": 1, "unit": "minute"}, "classes": ["cleric", "paladin"]},
  {"name": "Alarm", "source": "PHB", "level": 1, "school": "abjuration", "ritual": true, "time": {"amount": 1, "unit": "minute"},
   "range": {"origin": "point", "distance": 30, "unit": "feet"}, "duration": {"type": "timed", "amount": 8, "unit": "hour"}, "classes": ["wizard", "ranger"]},
  {"name": "Mage Hand", "source": "TCE", "level": 0, "school": "conjuration", "time": {"amount": 1, "unit": "action"},
   "range": {"origin": "point", "distance": 30, "unit": "feet"}, "duration": {"type": "timed", "amount": 1, "unit": "minute"}, "classes": ["wizard"]},
  {"name": "Mage Hand", "source": "XGE", "level": 0, "school": "conjuration", "time": {"amount": 1, "unit": "action"},
   "range": {"origin": "point", "distance": 30, "unit": "feet"}, "duration": {"type": "timed", "amount": 1, "unit": "minute"}, "classes": ["wizard"]}
]`

func sequence() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newLibrary(t *testing.T) *Library {
	t.Helper()
	lib := NewLibrary(Options{NewID: sequence()})
	require.NoError(t, lib.Load(strings.NewReader(canonical)))
	return lib
}

func names(entries []Entry, referenceMode bool) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = spell.DisplayName(e.Record, referenceMode)
	}
	return out
}

func entryID(t *testing.T, lib *Library, name, source string) string {
	t.Helper()
	for _, e := range lib.Entries() {
		if e.Record.Name == name && e.Record.Source == source {
			return e.ID
		}
	}
	t.Fatalf("missing %s (%s)", name, source)
	return ""
}

func TestLoadAssignsFreshIDs(t *testing.T) {
	lib := NewLibrary(Options{})
	require.NoError(t, lib.Load(strings.NewReader(canonical)))
	require.Equal(t, 7, lib.Len())
	seen := map[string]bool{}
	for _, e := range lib.Entries() {
		_, err := uuid.Parse(e.ID)
		require.NoError(t, err)
		assert.False(t, seen[e.ID])
		assert.False(t, e.Uploaded)
		seen[e.ID] = true
	}
}

func TestLoadRejectsInvalidRecord(t *testing.T) {
	lib := NewLibrary(Options{})
	err := lib.Load(strings.NewReader(`[{"name": "Oops", "school": "chronurgy", "time": {"unit": "action"}, "range": {"origin": "self"}, "duration": {"type": "instant"}}]`))
	assert.Error(t, err)
	assert.Zero(t, lib.Len())
}

func TestImport(t *testing.T) {
	lib := newLibrary(t)

	added, err := lib.Import([]byte(`{"name": "Fireball", "level": 3, "school": "evocation", "time": {"unit": "action"}, "range": {"origin": "self"}, "duration": {"type": "instant"}}`))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.True(t, added[0].Uploaded)
	assert.Equal(t, 8, lib.Len(), "duplicate names are allowed")

	for _, bad := range []string{`not json`, `42`, `[{"name": ""}]`, ``} {
		_, err := lib.Import([]byte(bad))
		assert.True(t, errors.Is(err, ErrMalformedImport), "input %q", bad)
	}
	assert.Equal(t, 8, lib.Len(), "malformed import must leave the set unchanged")
}

func TestSortStabilityAndModes(t *testing.T) {
	lib := newLibrary(t)
	f := Filter{ExcludeReprints: true}

	assert.Equal(t, []string{"Alarm", "bless", "Fireball", "Mage Hand", "Shield"}, names(Visible(lib.Entries(), f, SortName), false))
	assert.Equal(t, []string{"Mage Hand", "Alarm", "bless", "Shield", "Fireball"}, names(Visible(lib.Entries(), f, SortLevel), false))
	assert.Equal(t, []string{"Alarm", "Shield", "Mage Hand", "bless", "Fireball"}, names(Visible(lib.Entries(), f, SortSchool), false))
}

func TestReferenceOnlyRenamesEverywhere(t *testing.T) {
	lib := newLibrary(t)
	f := Filter{ReferenceOnly: true}
	got := Visible(lib.Entries(), f, SortName)
	assert.Equal(t, []string{"Arcane Ward", "bless"}, names(got, true))

	f.Search = "ward"
	assert.Len(t, Visible(lib.Entries(), f, SortName), 1)
	f.Search = "shield"
	assert.Empty(t, Visible(lib.Entries(), f, SortName), "search uses the displayed name")

	var buf bytes.Buffer
	require.NoError(t, lib.ExportReference(&buf, true))
	recs, err := spell.DecodeList(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Arcane Ward", recs[0].Name)

	d := New(lib, Options{NewID: sequence()})
	c, err := d.Add(entryID(t, lib, "Shield", "PHB"))
	require.NoError(t, err)
	assert.Equal(t, "Arcane Ward", Label(c, true))
	assert.Equal(t, "Shield", Label(c, false))
}

func TestFilters(t *testing.T) {
	lib := newLibrary(t)
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"levels", Filter{Levels: []int{0}}, []string{"Mage Hand", "Mage Hand"}},
		{"schools", Filter{Schools: []spell.School{spell.SchoolAbjuration}}, []string{"Alarm", "Shield"}},
		{"classes", Filter{Classes: []string{"Cleric"}}, []string{"bless"}},
		{"sources", Filter{Sources: []string{"xphb"}}, []string{"Fireball"}},
		{"concentration", Filter{Concentration: true}, []string{"bless"}},
		{"ritual", Filter{Ritual: true}, []string{"Alarm"}},
		{"search", Filter{Search: "FIRE"}, []string{"Fireball", "Fireball"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, names(Visible(lib.Entries(), tc.f, SortName), false))
		})
	}
}

func TestExcludeReprintsDiffersByRuleset(t *testing.T) {
	lib := newLibrary(t)
	sources := func(r Ruleset) map[string]string {
		out := map[string]string{}
		for _, e := range Visible(lib.Entries(), Filter{ExcludeReprints: true, Ruleset: r}, SortName) {
			out[e.Record.Name] = e.Record.Source
		}
		return out
	}

	old := sources(Ruleset2014)
	assert.Equal(t, "PHB", old["Fireball"])
	assert.Equal(t, "TCE", old["Mage Hand"], "2014 keeps the first listed source")

	cur := sources(Ruleset2024)
	assert.Equal(t, "XPHB", cur["Fireball"])
	assert.Equal(t, "XGE", cur["Mage Hand"], "2024 keeps the latest reprint")
}

func TestDeckMutations(t *testing.T) {
	lib := newLibrary(t)
	d := New(lib, Options{NewID: sequence()})

	fire, err := d.Add(entryID(t, lib, "Fireball", "PHB"))
	require.NoError(t, err)
	assert.True(t, fire.Linked())
	_, err = d.Add("nope")
	assert.Error(t, err)

	blank := d.AddBlank()
	assert.False(t, blank.Linked())
	ref := d.AddReference()
	assert.Equal(t, card.KindReference, ref.Kind)

	dup, err := d.Duplicate(fire.ID)
	require.NoError(t, err)
	assert.Equal(t, fire.OriginID, dup.OriginID)
	assert.Equal(t, []string{fire.ID, dup.ID, blank.ID, ref.ID}, ids(d.Cards()))

	require.NoError(t, d.Move(ref.ID, 0))
	assert.Equal(t, []string{ref.ID, fire.ID, dup.ID, blank.ID}, ids(d.Cards()))
	require.NoError(t, d.Move(ref.ID, 99))
	assert.Equal(t, []string{fire.ID, dup.ID, blank.ID, ref.ID}, ids(d.Cards()))
	assert.Error(t, d.Move("missing", 0))

	starred, err := d.ToggleStar(dup.ID)
	require.NoError(t, err)
	assert.True(t, starred)

	assert.True(t, d.Remove(dup.ID))
	assert.False(t, d.Remove(dup.ID))
	assert.Equal(t, 3, d.Len())
}

func TestUpdateResetAndUnlink(t *testing.T) {
	lib := newLibrary(t)
	d := New(lib, Options{NewID: sequence()})
	c, err := d.Add(entryID(t, lib, "Alarm", "PHB"))
	require.NoError(t, err)
	c.Front = &card.Face{}

	edited := c.Record.Clone()
	edited.Description = "A custom ward."
	require.NoError(t, d.Update(c.ID, edited))
	assert.True(t, c.Modified)
	assert.Nil(t, c.Front, "update invalidates the rendered faces")

	require.NoError(t, d.Update(c.ID, lib.Entries()[4].Record))
	assert.False(t, c.Modified, "identical content is not a modification")

	require.NoError(t, d.Update(c.ID, edited))
	assert.True(t, d.ResetToOriginal(c.ID))
	assert.Empty(t, c.Record.Description)
	assert.False(t, c.Modified)

	assert.True(t, d.Unlink(c.ID))
	assert.False(t, d.ResetToOriginal(c.ID))
	assert.False(t, d.Unlink(c.ID))

	ref := d.AddReference()
	assert.Error(t, d.Update(ref.ID, edited))
}

func TestResetWithMissingOriginalIsNoop(t *testing.T) {
	lib := newLibrary(t)
	d := New(lib, Options{NewID: sequence()})
	c, err := d.Add(entryID(t, lib, "Shield", "PHB"))
	require.NoError(t, err)
	c.Record.Description = "edited"

	// 重新加载后 ID 全部重新分配，旧链接失效。
	require.NoError(t, lib.Load(strings.NewReader(canonical)))
	assert.False(t, d.ResetToOriginal(c.ID))
	assert.Equal(t, "edited", c.Record.Description)
}

func TestOrderedPolicy(t *testing.T) {
	lib := newLibrary(t)
	d := New(lib, Options{NewID: sequence()})
	shield, _ := d.Add(entryID(t, lib, "Shield", "PHB"))
	blank := d.AddBlank()
	alarm, _ := d.Add(entryID(t, lib, "Alarm", "PHB"))
	ref := d.AddReference()
	hand, _ := d.Add(entryID(t, lib, "Mage Hand", "TCE"))

	got := Ordered(d.Cards(), SortLevel, false)
	assert.Equal(t, []string{ref.ID, blank.ID, hand.ID, alarm.ID, shield.ID}, ids(got))

	// 参考模式下 Shield 以 "Arcane Ward" 参与排序。
	got = Ordered(d.Cards(), SortName, true)
	assert.Equal(t, []string{ref.ID, blank.ID, alarm.ID, shield.ID, hand.ID}, ids(got))
}

func TestExportModified(t *testing.T) {
	lib := newLibrary(t)
	d := New(lib, Options{NewID: sequence()})
	_, err := d.Add(entryID(t, lib, "Alarm", "PHB"))
	require.NoError(t, err)
	changed, _ := d.Add(entryID(t, lib, "Shield", "PHB"))
	d.AddBlank()
	d.AddReference()

	edited := changed.Record.Clone()
	edited.Page = 999
	require.NoError(t, d.Update(changed.ID, edited))

	var buf bytes.Buffer
	require.NoError(t, d.ExportModified(&buf, false))
	assert.NotContains(t, buf.String(), `"id"`)
	recs, err := spell.DecodeList(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Shield", recs[0].Name)
	assert.Equal(t, 999, recs[0].Page)
	assert.Equal(t, "New Spell", recs[1].Name)
}

func TestParseSortAndRuleset(t *testing.T) {
	s, err := ParseSort("School")
	require.NoError(t, err)
	assert.Equal(t, SortSchool, s)
	_, err = ParseSort("color")
	assert.Error(t, err)

	r, err := ParseRuleset("2024")
	require.NoError(t, err)
	assert.Equal(t, Ruleset2024, r)
	_, err = ParseRuleset("5e")
	assert.Error(t, err)
}

func ids(cards []*card.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

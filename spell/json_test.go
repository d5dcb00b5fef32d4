package spell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fireballJSON = `{
  "name": "Fireball",
  "source": "PHB",
  "page": 241,
  "reference": "Fire Ball (SRD)",
  "level": 3,
  "school": "Evocation",
  "time": {"amount": 1, "unit": "action"},
  "range": {"origin": "point", "distance": 150, "unit": "feet", "area": "sphere", "areaDistance": 20, "areaUnit": "feet"},
  "duration": {"type": "instant"},
  "components": {"v": true, "s": true, "m": true, "description": "a tiny ball of bat guano and sulfur"},
  "description": "A bright streak flashes from your pointing finger.",
  "higherLevels": "The damage increases by 1d6.",
  "classes": ["sorcerer", "wizard"]
}`

func TestDecodeBuildsTaggedUnions(t *testing.T) {
	recs, err := DecodeOneOrMany([]byte(fireballJSON))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, SchoolEvocation, rec.School)
	assert.Equal(t, ReferenceFlag{Enabled: true, Alias: "Fire Ball (SRD)"}, rec.Reference)

	point, ok := rec.Range.(PointRange)
	require.True(t, ok, "range should decode as PointRange, got %T", rec.Range)
	assert.Equal(t, 150.0, point.Distance)
	require.NotNil(t, point.Area)
	assert.Equal(t, AreaSphere, point.Area.Shape)

	_, ok = rec.Duration.(InstantDuration)
	assert.True(t, ok)
	assert.True(t, rec.HasClass("Wizard"))
}

func TestDecodeRejectsUnknownSchool(t *testing.T) {
	bad := strings.Replace(fireballJSON, `"Evocation"`, `"chronomancy"`, 1)
	_, err := DecodeOneOrMany([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chronomancy")
}

func TestDecodeRejectsBadShape(t *testing.T) {
	_, err := DecodeOneOrMany([]byte(`"just a string"`))
	require.Error(t, err)

	_, err = DecodeOneOrMany([]byte(`[{"name": "x"`))
	require.Error(t, err)
}

func TestReferenceFlagAcceptsBool(t *testing.T) {
	var f ReferenceFlag
	require.NoError(t, f.UnmarshalJSON([]byte("true")))
	assert.Equal(t, ReferenceFlag{Enabled: true}, f)

	require.NoError(t, f.UnmarshalJSON([]byte(`""`)))
	assert.False(t, f.Enabled)
}

func TestEncodeKeepsCanonicalSchema(t *testing.T) {
	recs, err := DecodeOneOrMany([]byte(fireballJSON))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeList(&buf, recs))
	out := buf.String()
	assert.Contains(t, out, `"reference": "Fire Ball (SRD)"`)
	assert.Contains(t, out, `"areaDistance": 20`)
	assert.NotContains(t, out, `"id"`)

	again, err := DecodeList(&buf)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.True(t, Equal(recs[0], again[0]))
}

func TestDisplayNameDependsOnMode(t *testing.T) {
	rec := Record{Name: "Fireball", Reference: ReferenceFlag{Enabled: true, Alias: "Fire Ball"}}
	assert.Equal(t, "Fire Ball", DisplayName(rec, true))
	assert.Equal(t, "Fireball", DisplayName(rec, false))

	plain := Record{Name: "Shield", Reference: ReferenceFlag{Enabled: true}}
	assert.Equal(t, "Shield", DisplayName(plain, true))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Record{
		Name:    "Cone of Cold",
		Classes: []string{"wizard"},
		Range:   SelfRange{Extent{Area: &Area{Shape: AreaCone, Size: 60, Unit: UnitFeet}}},
	}
	cp := orig.Clone()
	cp.Classes[0] = "sorcerer"
	AreaOf(cp.Range).Size = 30

	assert.Equal(t, "wizard", orig.Classes[0])
	assert.Equal(t, 60.0, AreaOf(orig.Range).Size)
}

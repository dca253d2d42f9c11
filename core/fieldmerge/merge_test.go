package fieldmerge

import (
	"testing"

	"character-sync/core/syncerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	old := map[string]any{
		"name":      "Mira",
		"stats":     map[string]any{"hp": 10, "mp": 3},
		"inventory": []any{"rope", "torch"},
		"gold":      5,
	}
	new := map[string]any{
		"name":      "Mira",
		"stats":     map[string]any{"hp": 8, "mp": 3.0},
		"inventory": []any{"rope", "lantern"},
		"level":     2,
	}

	changed, paths := Diff(old, new)
	assert.True(t, changed)
	assert.Equal(t, []string{"gold", "inventory", "level", "stats.hp"}, paths)

	changed, paths = Diff(old, CopyDocument(old))
	assert.False(t, changed)
	assert.Empty(t, paths)

	changed, _ = Diff(1, 2)
	assert.True(t, changed)
}

func TestDiffPatch(t *testing.T) {
	base := map[string]any{"a": 1, "b": 1, "stats": map[string]any{"hp": 5, "mp": 2}}
	patch := map[string]any{"b": 2, "stats": map[string]any{"hp": 5, "ac": 14}}

	assert.Equal(t, []string{"b", "stats.ac"}, DiffPatch(base, patch))
	assert.Empty(t, DiffPatch(base, map[string]any{"a": 1.0}))
}

func TestPatch(t *testing.T) {
	doc := map[string]any{"stats": map[string]any{"hp": 5, "mp": 2}, "tags": []any{"a"}}
	Patch(doc, map[string]any{"stats": map[string]any{"hp": 7}, "tags": []any{"b"}})
	assert.Equal(t, map[string]any{"stats": map[string]any{"hp": 7, "mp": 2}, "tags": []any{"b"}}, doc)
}

func TestCopyDocument_IsDeep(t *testing.T) {
	src := map[string]any{"stats": map[string]any{"hp": 5}, "tags": []any{"a"}}
	cp := CopyDocument(src)
	src["stats"].(map[string]any)["hp"] = 1
	src["tags"].([]any)[0] = "z"
	assert.Equal(t, 5, cp["stats"].(map[string]any)["hp"])
	assert.Equal(t, "a", cp["tags"].([]any)[0])
}

func TestMergeFull_Symmetry(t *testing.T) {
	const base = 10
	for _, other := range []any{10, 11, 42} {
		// theirs == base keeps ours.
		merged, changed, err := MergeValues(base, base, other, ModeFull)
		require.NoError(t, err)
		assert.Equal(t, other, merged)
		assert.Equal(t, !Equal(other, base), changed)

		// ours == base takes theirs.
		merged, changed, err = MergeValues(base, other, base, ModeFull)
		require.NoError(t, err)
		assert.Equal(t, other, merged)
		assert.Equal(t, !Equal(other, base), changed)
	}
}

func TestMergeFull_Conflict(t *testing.T) {
	base := map[string]any{"x": 1}
	theirs := map[string]any{"x": 2}
	ours := map[string]any{"x": 3}

	merged, changed, err := Merge(base, theirs, ours, "x", ModeFull)
	require.Error(t, err)
	assert.Nil(t, merged)
	assert.False(t, changed)
	assert.Equal(t, syncerr.KindStateConflict, syncerr.KindOf(err))

	var se *syncerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x", se.Path)
}

func TestMergeFull_SameChangeOnBothSides(t *testing.T) {
	merged, changed, err := MergeValues(1, 4, 4, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 4, merged)
	assert.True(t, changed)
}

func TestMergeIncremental_Commutative(t *testing.T) {
	a, _, err := MergeValues(10, 15, 12, ModeIncremental)
	require.NoError(t, err)
	b, _, err := MergeValues(10, 12, 15, ModeIncremental)
	require.NoError(t, err)

	assert.Equal(t, 17, a)
	assert.Equal(t, a, b)

	f, changed, err := MergeValues(1.5, 2.0, 1.0, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
	assert.False(t, changed)
}

func TestMergeIncremental_LargeIntegersStayExact(t *testing.T) {
	base := int64(1<<53) + 1
	merged, changed, err := MergeValues(base, base+1, base+2, ModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, int(base+3), merged)
	assert.True(t, changed)
	assert.False(t, Equal(base, base+1))
}

func TestMergeIncremental_RejectsNonNumeric(t *testing.T) {
	for _, tc := range [][3]any{{10, "15", 12}, {nil, 1, 2}, {1, 2, true}} {
		_, _, err := MergeValues(tc[0], tc[1], tc[2], ModeIncremental)
		assert.Error(t, err)
		assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
	}
}

func TestMergeUnion_Maps(t *testing.T) {
	base := map[string]any{"spells": map[string]any{"light": 1, "shield": 1}}
	theirs := map[string]any{"spells": map[string]any{"light": 2, "bless": 1}}
	ours := map[string]any{"spells": map[string]any{"light": 3}}

	merged, changed, err := Merge(base, theirs, ours, "spells", ModeMerge)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, map[string]any{"light": 3, "shield": 1, "bless": 1}, merged)
}

func TestMergeUnion_Lists(t *testing.T) {
	merged, changed, err := MergeValues(
		[]any{"rope"},
		[]any{"rope", "torch"},
		[]any{"lantern", "rope"},
		ModeMerge,
	)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.ElementsMatch(t, []any{"rope", "torch", "lantern"}, merged)

	merged, _, err = MergeValues(nil, []any{"a"}, []any{"a", "b"}, ModeMerge)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"a", "b"}, merged)
}

func TestMergeUnion_TypeMismatch(t *testing.T) {
	_, _, err := MergeValues([]any{"a"}, map[string]any{"b": 1}, nil, ModeMerge)
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
}

func TestMerge_UnknownMode(t *testing.T) {
	_, _, err := MergeValues(1, 2, 3, Mode("bogus"))
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"FULL": ModeFull, "": ModeFull, "Incremental": ModeIncremental, "merge": ModeMerge} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("lww")
	assert.Error(t, err)
}

func TestDiffSegments_KeepsKeysVerbatim(t *testing.T) {
	old := map[string]any{"spell.slots": 1, "slots[1]": "a", "stats": map[string]any{"a.b": 1}}
	new := map[string]any{"spell.slots": 2, "slots[1]": "b", "stats": map[string]any{"a.b": 2}}

	changed, paths := DiffSegments(old, new)
	assert.True(t, changed)
	assert.Equal(t, []Path{
		{{Key: "slots[1]"}},
		{{Key: "spell.slots"}},
		{{Key: "stats"}, {Key: "a.b"}},
	}, paths)

	assert.Equal(t, map[string]struct{}{"slots[1]": {}, "spell.slots": {}, "stats": {}}, TopLevelKeys(paths))

	patchPaths := DiffPatchSegments(old, map[string]any{"spell.slots": 1, "stats": map[string]any{"a.b": 3}})
	assert.Equal(t, []Path{{{Key: "stats"}, {Key: "a.b"}}}, patchPaths)
}

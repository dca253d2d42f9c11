package reconcile

import (
	"testing"
	"time"

	"character-sync/core/fieldmerge"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeDetector_AllFields(t *testing.T) {
	old := map[string]any{"hp": 10, "stats": map[string]any{"str": 14, "dex": 12}, "tags": []any{"a"}}
	new := map[string]any{"hp": 10, "stats": map[string]any{"str": 15, "dex": 12}, "tags": []any{"a", "b"}}

	d := NewChangeDetector(&Spec{FieldModes: map[string]fieldmerge.Mode{"tags": fieldmerge.ModeMerge}})
	d.now = func() time.Time { return t0 }

	changes, err := d.Detect(old, new, nil)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, StateChange{FieldPath: "stats.str", OldValue: 14, NewValue: 15, SyncMode: fieldmerge.ModeFull, Timestamp: t0}, changes[0])
	assert.Equal(t, "tags", changes[1].FieldPath)
	assert.Equal(t, fieldmerge.ModeMerge, changes[1].SyncMode)
}

func TestChangeDetector_AllowList(t *testing.T) {
	old := map[string]any{"hp": 10, "mp": 3, "name": "Mira"}
	new := map[string]any{"hp": 9, "mp": 4, "name": "Mira"}

	d := NewChangeDetector(nil)
	changes, err := d.Detect(old, new, []string{"mp", "name", "missing"})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "mp", changes[0].FieldPath)

	d = NewChangeDetector(&Spec{Fields: []string{"hp"}})
	changes, err = d.Detect(old, new, nil)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "hp", changes[0].FieldPath)

	_, err = d.Detect(old, new, []string{"bad..path"})
	assert.Error(t, err)
}

package reconcile

import (
	"testing"
	"time"

	"character-sync/core/fieldmerge"
	"character-sync/core/syncerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func TestReconcile_SkipsStaleChanges(t *testing.T) {
	current := map[string]any{"hp": 8, "name": "Mira"}
	base := map[string]any{"hp": 10, "name": "Mira"}

	changes := []StateChange{
		// Remote saw hp=10, but it is 8 now.
		{FieldPath: "hp", OldValue: 10, NewValue: 12, Timestamp: at(1)},
		// Unrelated change still applies.
		{FieldPath: "name", OldValue: "Mira", NewValue: "Mira the Bold", Timestamp: at(2)},
	}

	r := NewReconciler(nil, zap.NewNop())
	plan, err := r.Reconcile(base, current, changes)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"hp": 8, "name": "Mira the Bold"}, plan.State)
	require.Len(t, plan.Applied, 1)
	assert.Equal(t, "name", plan.Applied[0].FieldPath)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, SkipStale, plan.Skipped[0].Reason)
	assert.Equal(t, 8, plan.Skipped[0].Actual)

	assert.Equal(t, PlanSummary{TotalChanges: 2, Applied: 1, Skipped: 1, Fields: 2, DivergedFields: []string{"hp"}}, plan.Summary)

	// The input state is left alone.
	assert.Equal(t, "Mira", current["name"])
}

func TestReconcile_OrdersByTimestampWithinField(t *testing.T) {
	current := map[string]any{"stats": map[string]any{"hp": 10}}

	// Delivered out of order; the chain only holds when replayed by time.
	changes := []StateChange{
		{FieldPath: "stats.hp", OldValue: 9, NewValue: 7, Timestamp: at(2)},
		{FieldPath: "stats.hp", OldValue: 10, NewValue: 9, Timestamp: at(1)},
	}

	plan, err := NewReconciler(nil, nil).Reconcile(current, current, changes)
	require.NoError(t, err)
	assert.Equal(t, 7, plan.State["stats"].(map[string]any)["hp"])
	assert.Len(t, plan.Applied, 2)
	assert.Empty(t, plan.Skipped)
	assert.Equal(t, at(1), plan.Applied[0].Timestamp)
}

func TestReconcile_IncrementalComposes(t *testing.T) {
	spec := &Spec{FieldModes: map[string]fieldmerge.Mode{"gold": fieldmerge.ModeIncremental}}
	current := map[string]any{"gold": 120}

	changes := []StateChange{
		// Neither old value matches the live 120; deltas still apply.
		{FieldPath: "gold", OldValue: 100, NewValue: 150, Timestamp: at(1)},
		{FieldPath: "gold", OldValue: 100, NewValue: 90, Timestamp: at(2)},
	}

	plan, err := NewReconciler(spec, zap.NewNop()).Reconcile(map[string]any{"gold": 100}, current, changes)
	require.NoError(t, err)
	assert.Equal(t, 160, plan.State["gold"])
	assert.Len(t, plan.Applied, 2)
}

func TestReconcile_IncrementalOnMissingField(t *testing.T) {
	changes := []StateChange{{FieldPath: "xp", OldValue: 0, NewValue: 50, SyncMode: fieldmerge.ModeIncremental, Timestamp: at(1)}}
	plan, err := NewReconciler(nil, nil).Reconcile(nil, map[string]any{}, changes)
	require.NoError(t, err)
	assert.Equal(t, 50, plan.State["xp"])
}

func TestReconcile_SkipsUnassignablePath(t *testing.T) {
	current := map[string]any{"hp": 5, "name": "a"}
	changes := []StateChange{
		// hp is a number here, so hp.max has nowhere to go.
		{FieldPath: "hp.max", OldValue: nil, NewValue: 10, Timestamp: at(1)},
		{FieldPath: "name", OldValue: "a", NewValue: "b", Timestamp: at(2)},
		{FieldPath: "hp.regen", OldValue: 0, NewValue: 2, SyncMode: fieldmerge.ModeIncremental, Timestamp: at(3)},
	}

	plan, err := NewReconciler(nil, zap.NewNop()).Reconcile(current, current, changes)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"hp": 5, "name": "b"}, plan.State)
	require.Len(t, plan.Applied, 1)
	assert.Equal(t, "name", plan.Applied[0].FieldPath)
	require.Len(t, plan.Skipped, 2)
	for _, s := range plan.Skipped {
		assert.Equal(t, SkipUnassignable, s.Reason)
		assert.Equal(t, 5, s.Actual)
	}
}

func TestReconcile_IncrementalKeepsLargeIntegers(t *testing.T) {
	big := int64(1<<53) + 1
	changes := []StateChange{{FieldPath: "xp", OldValue: big, NewValue: big + 2, SyncMode: fieldmerge.ModeIncremental, Timestamp: at(1)}}

	plan, err := NewReconciler(nil, nil).Reconcile(nil, map[string]any{"xp": big}, changes)
	require.NoError(t, err)
	assert.Equal(t, int(big+2), plan.State["xp"])
}

func TestReconcile_MergeMode(t *testing.T) {
	spec := &Spec{FieldModes: map[string]fieldmerge.Mode{"inventory": fieldmerge.ModeMerge}}
	current := map[string]any{"inventory": []any{"rope"}}
	changes := []StateChange{{FieldPath: "inventory", OldValue: []any{"rope"}, NewValue: []any{"torch"}, Timestamp: at(1)}}

	plan, err := NewReconciler(spec, nil).Reconcile(current, current, changes)
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{"rope", "torch"}, plan.State["inventory"])
}

func TestReconcile_ValidationErrors(t *testing.T) {
	r := NewReconciler(nil, nil)

	_, err := r.Reconcile(nil, map[string]any{}, []StateChange{{FieldPath: "stats..hp", NewValue: 1}})
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))

	_, err = r.Reconcile(nil, map[string]any{"gold": 1}, []StateChange{
		{FieldPath: "gold", OldValue: "1", NewValue: 2, SyncMode: fieldmerge.ModeIncremental},
	})
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))

	_, err = r.Reconcile(nil, map[string]any{"gold": "lots"}, []StateChange{
		{FieldPath: "gold", OldValue: 1, NewValue: 2, SyncMode: fieldmerge.ModeIncremental},
	})
	assert.Equal(t, syncerr.KindValidation, syncerr.KindOf(err))
}

func TestPlan_Patch(t *testing.T) {
	current := map[string]any{"stats": map[string]any{"hp": 10, "mp": 2}, "name": "Mira"}
	changes := []StateChange{{FieldPath: "stats.hp", OldValue: 10, NewValue: 11, Timestamp: at(1)}}

	plan, err := NewReconciler(nil, nil).Reconcile(current, current, changes)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stats": map[string]any{"hp": 11, "mp": 2}}, plan.Patch())
}

func TestSpec_ModeFor(t *testing.T) {
	spec := &Spec{FieldModes: map[string]fieldmerge.Mode{
		"stats":      fieldmerge.ModeMerge,
		"stats.gold": fieldmerge.ModeIncremental,
	}}

	assert.Equal(t, fieldmerge.ModeIncremental, spec.ModeFor("stats.gold"))
	assert.Equal(t, fieldmerge.ModeMerge, spec.ModeFor("stats.hp"))
	assert.Equal(t, fieldmerge.ModeFull, spec.ModeFor("statsheet"))
	assert.Equal(t, fieldmerge.ModeFull, (*Spec)(nil).ModeFor("stats"))
}

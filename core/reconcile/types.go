package reconcile

import (
	"strings"
	"time"

	"character-sync/core/fieldmerge"
)

// StateChange describes a single field-level mutation.
type StateChange struct {
	// FieldPath is the dot/bracket path of the field, e.g. "stats.hp".
	FieldPath string `json:"field_path"`

	// OldValue is the value the producer saw before its change.
	OldValue any `json:"old_value"`

	// NewValue is the value the producer wrote.
	NewValue any `json:"new_value"`

	// SyncMode selects how the change composes with concurrent edits.
	// Empty means "use the Spec's mode for this path".
	SyncMode fieldmerge.Mode `json:"sync_mode,omitempty"`

	// Timestamp is when the change was made at its source.
	Timestamp time.Time `json:"timestamp"`
}

// Spec configures detection and reconciliation.
type Spec struct {
	// FieldModes maps a field path (or a prefix of one) to its sync mode.
	// The longest matching prefix wins; unmatched fields use ModeFull.
	// Example: {"gold": incremental, "inventory": merge}
	FieldModes map[string]fieldmerge.Mode

	// Fields is the default allow-list for change detection.
	// If empty, every changed path is reported.
	Fields []string
}

// ModeFor returns the sync mode declared for path.
func (s *Spec) ModeFor(path string) fieldmerge.Mode {
	if s == nil || len(s.FieldModes) == 0 {
		return fieldmerge.ModeFull
	}
	best := ""
	mode := fieldmerge.ModeFull
	for prefix, m := range s.FieldModes {
		if !hasPathPrefix(path, prefix) || len(prefix) <= len(best) {
			continue
		}
		best = prefix
		mode = m
	}
	return mode
}

func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	next := path[len(prefix)]
	return next == '.' || next == '['
}

// SkipReason explains why a change was not applied.
type SkipReason string

const (
	// SkipStale means the change's OldValue no longer matches the live value.
	SkipStale SkipReason = "stale"
	// SkipUnassignable means the path runs through a value that cannot hold
	// it, e.g. "hp.max" while hp is a number.
	SkipUnassignable SkipReason = "unassignable"
)

// SkippedChange is a change dropped during reconciliation.
type SkippedChange struct {
	Change StateChange `json:"change"`
	Reason SkipReason  `json:"reason"`
	// Actual is the running value the change was compared against.
	Actual any `json:"actual"`
}

// Plan is the outcome of a batch reconciliation.
type Plan struct {
	// State is the reconciled document. The input state is never mutated.
	State map[string]any `json:"state"`

	// Applied lists the changes that took effect, in replay order.
	Applied []StateChange `json:"applied"`

	// Skipped lists the changes that were dropped, with the reason.
	Skipped []SkippedChange `json:"skipped"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// TotalChanges is the number of changes received.
	TotalChanges int `json:"total_changes"`

	// Applied counts changes that took effect.
	Applied int `json:"applied"`

	// Skipped counts dropped changes.
	Skipped int `json:"skipped"`

	// Fields counts the distinct top-level fields touched by the batch.
	Fields int `json:"fields"`

	// DivergedFields lists top-level fields that changed between the base
	// state the producer started from and the current state.
	DivergedFields []string `json:"diverged_fields"`
}

// Patch returns the top-level fields touched by applied changes with their
// reconciled values, in the shape VersionManager.ApplyChanges expects.
func (p *Plan) Patch() map[string]any {
	patch := make(map[string]any)
	for _, c := range p.Applied {
		key := fieldmerge.TopLevel(c.FieldPath)
		if v, ok := p.State[key]; ok {
			patch[key] = fieldmerge.DeepCopy(v)
		}
	}
	return patch
}

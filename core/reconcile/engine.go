package reconcile

import (
	"sort"

	"character-sync/core/fieldmerge"
	"character-sync/core/syncerr"
	"character-sync/core/utils"

	"go.uber.org/zap"
)

// Reconciler replays batches of remote changes against the current state.
type Reconciler struct {
	spec   *Spec
	logger *zap.Logger
}

// NewReconciler creates a reconciler. spec may be nil.
func NewReconciler(spec *Spec, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{spec: spec, logger: logger}
}

// Reconcile replays changes on a copy of currentState. Stale changes and
// changes whose path cannot exist in the running state are skipped and
// reported in the plan. Malformed paths and non-numeric incremental values
// fail the whole call.
func (r *Reconciler) Reconcile(baseState, currentState map[string]any, changes []StateChange) (*Plan, error) {
	groups, order, err := r.group(changes)
	if err != nil {
		return nil, err
	}

	running := fieldmerge.CopyDocument(currentState)
	plan := &Plan{
		State:   running,
		Applied: []StateChange{},
		Skipped: []SkippedChange{},
	}

	for _, field := range order {
		for _, change := range groups[field] {
			reason, actual, err := r.apply(running, change)
			if err != nil {
				return nil, err
			}
			if reason != "" {
				r.logger.Info("Skipping change",
					zap.String("field", change.FieldPath),
					zap.String("reason", string(reason)),
					zap.Any("expected", change.OldValue),
					zap.Any("actual", actual),
					zap.Time("timestamp", change.Timestamp))
				plan.Skipped = append(plan.Skipped, SkippedChange{Change: change, Reason: reason, Actual: actual})
				continue
			}
			plan.Applied = append(plan.Applied, change)
		}
	}

	_, diverged := fieldmerge.DiffSegments(baseState, currentState)
	plan.Summary = PlanSummary{
		TotalChanges:   len(changes),
		Applied:        len(plan.Applied),
		Skipped:        len(plan.Skipped),
		Fields:         len(order),
		DivergedFields: sortedSet(fieldmerge.TopLevelKeys(diverged)),
	}
	return plan, nil
}

// group validates every change and buckets them by top-level field, each
// bucket sorted by timestamp (stable for equal timestamps).
func (r *Reconciler) group(changes []StateChange) (map[string][]StateChange, []string, error) {
	groups := make(map[string][]StateChange)
	for _, c := range changes {
		segments, err := fieldmerge.ParsePath(c.FieldPath)
		if err != nil {
			return nil, nil, err
		}
		if r.modeOf(c) == fieldmerge.ModeIncremental {
			if !utils.IsNumber(c.OldValue) || !utils.IsNumber(c.NewValue) {
				return nil, nil, syncerr.Validation("incremental change requires numeric values, got %T and %T", c.OldValue, c.NewValue).WithPath(c.FieldPath)
			}
		}
		key := segments[0].Key
		groups[key] = append(groups[key], c)
	}

	order := make([]string, 0, len(groups))
	for key, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Timestamp.Before(g[j].Timestamp)
		})
		order = append(order, key)
	}
	sort.Strings(order)
	return groups, order, nil
}

func (r *Reconciler) modeOf(c StateChange) fieldmerge.Mode {
	if c.SyncMode != "" {
		return c.SyncMode
	}
	return r.spec.ModeFor(c.FieldPath)
}

// apply performs one change on running. A non-empty reason means the change
// was skipped; actual is the running value it was compared against.
func (r *Reconciler) apply(running map[string]any, c StateChange) (SkipReason, any, error) {
	path, err := fieldmerge.ParsePath(c.FieldPath)
	if err != nil {
		return "", nil, err
	}
	current, found := fieldmerge.LookupSegments(running, path)
	if !found && fieldmerge.CheckAssign(running, path) != nil {
		parent, _ := fieldmerge.LookupSegments(running, path[:len(path)-1])
		return SkipUnassignable, parent, nil
	}

	var next any
	switch r.modeOf(c) {
	case fieldmerge.ModeIncremental:
		var base any = 0
		if current != nil {
			base = current
		}
		sum, ok := utils.AddDelta(base, c.OldValue, c.NewValue)
		if !ok {
			return "", nil, syncerr.Validation("incremental change on non-numeric value %T", current).WithPath(c.FieldPath)
		}
		next = sum

	case fieldmerge.ModeMerge:
		if !fieldmerge.Equal(c.OldValue, current) {
			return SkipStale, current, nil
		}
		merged, _, err := fieldmerge.MergeValues(current, current, c.NewValue, fieldmerge.ModeMerge)
		if err != nil {
			return "", nil, err
		}
		next = merged

	default:
		if !fieldmerge.Equal(c.OldValue, current) {
			return SkipStale, current, nil
		}
		next = fieldmerge.DeepCopy(c.NewValue)
	}
	return "", current, fieldmerge.AssignSegments(running, path, next)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package reconcile detects field-level changes between state snapshots and
// replays batches of remote changes against the authoritative state.
//
// # Change detection
//
// ChangeDetector diffs two documents and returns an ordered list of
// StateChange values, optionally restricted to an allow-list of field paths.
// The sync mode of each change comes from the Spec's FieldModes table.
//
// # Batch reconciliation
//
// Reconciler takes changes captured somewhere else (another client, another
// service) and replays them against the current state:
//
//  1. Changes are grouped by top-level field and sorted by timestamp.
//  2. Each change applies only if its OldValue still matches the running value
//     at its path. Stale changes are logged and skipped, the batch continues.
//  3. Incremental changes apply their delta to the running value instead of
//     requiring an exact match, since deltas compose in any order.
//
// The result is a Plan: the reconciled state, the changes that applied and
// the ones that were skipped.
//
// # Usage
//
//	spec := &reconcile.Spec{FieldModes: map[string]fieldmerge.Mode{"gold": fieldmerge.ModeIncremental}}
//	r := reconcile.NewReconciler(spec, logger)
//	plan, err := r.Reconcile(baseState, currentState, changes)
package reconcile

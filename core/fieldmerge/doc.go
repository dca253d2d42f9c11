// Package fieldmerge provides path-based access to nested state documents and
// the per-field three-way merge used by the versioning engine.
//
// A document is a tree of map[string]any, []any and scalars, the shape
// produced by encoding/json. Field paths use dots for map keys and brackets
// for list indexes:
//
//	stats.hp
//	inventory[2].name
//
// # Sync modes
//
//   - ModeFull: replace with conflict detection. If only one side moved away
//     from the base, that side wins; if both moved to different values the
//     merge fails with a state conflict.
//   - ModeIncremental: numeric accumulators. Both deltas are added to the base,
//     so the result does not depend on which side is "theirs".
//   - ModeMerge: maps are shallow-merged (ours wins on key collision), lists
//     are unioned without duplicates.
//
// Lists are atomic for diffing: any difference reports the whole list path.
package fieldmerge

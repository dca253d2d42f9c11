package versioning

import (
	"sort"
	"strings"

	"character-sync/core/fieldmerge"
	"character-sync/core/syncerr"
)

// Resolver merges a change set computed against an older base version into
// the current state.
//
// Overlap is detected per top-level key: two edits to different nested
// fields under the same key still conflict.
type Resolver struct{}

// Resolve returns the merged document, or a state conflict when the changes
// and the concurrent writes since base touch the same top-level keys.
// None of the inputs are mutated.
func (Resolver) Resolve(entityID string, base StateVersion, current, changes map[string]any) (map[string]any, error) {
	_, currentPaths := fieldmerge.DiffSegments(base.StateData, current)
	changePaths := fieldmerge.DiffPatchSegments(base.StateData, changes)

	if overlap := overlappingKeys(currentPaths, changePaths); len(overlap) > 0 {
		return nil, syncerr.StateConflict(entityID,
			"changes since version %d overlap on %s", base.Version, strings.Join(overlap, ", "))
	}

	merged := fieldmerge.CopyDocument(base.StateData)
	if err := replay(merged, current, currentPaths); err != nil {
		return nil, err
	}
	if err := replay(merged, changes, changePaths); err != nil {
		return nil, err
	}
	return merged, nil
}

// replay copies the value at each path from src into dst. Paths missing
// from src are deleted from dst.
func replay(dst, src map[string]any, paths []fieldmerge.Path) error {
	for _, path := range paths {
		v, ok := fieldmerge.LookupSegments(src, path)
		if !ok {
			if err := fieldmerge.DeleteSegments(dst, path); err != nil {
				return err
			}
			continue
		}
		if err := fieldmerge.AssignSegments(dst, path, fieldmerge.DeepCopy(v)); err != nil {
			return err
		}
	}
	return nil
}

func overlappingKeys(a, b []fieldmerge.Path) []string {
	left := fieldmerge.TopLevelKeys(a)
	var out []string
	for key := range fieldmerge.TopLevelKeys(b) {
		if _, ok := left[key]; ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

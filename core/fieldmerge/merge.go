package fieldmerge

import (
	"character-sync/core/syncerr"
	"character-sync/core/utils"
)

// Merge extracts path from the base, theirs and ours documents and merges the
// three values under mode. It returns the merged value and whether it differs
// from the base value.
func Merge(base, theirs, ours map[string]any, path string, mode Mode) (any, bool, error) {
	bv, err := Extract(base, path)
	if err != nil {
		return nil, false, err
	}
	tv, err := Extract(theirs, path)
	if err != nil {
		return nil, false, err
	}
	ov, err := Extract(ours, path)
	if err != nil {
		return nil, false, err
	}

	merged, changed, err := MergeValues(bv, tv, ov, mode)
	if err != nil {
		if e, ok := err.(*syncerr.Error); ok {
			return nil, false, e.WithPath(path)
		}
		return nil, false, err
	}
	return merged, changed, nil
}

// MergeValues is the three-way merge of already extracted values.
func MergeValues(base, theirs, ours any, mode Mode) (any, bool, error) {
	switch mode {
	case ModeFull, "":
		return mergeFull(base, theirs, ours)
	case ModeIncremental:
		return mergeIncremental(base, theirs, ours)
	case ModeMerge:
		return mergeUnion(base, theirs, ours)
	default:
		return nil, false, syncerr.Validation("unknown sync mode %q", mode)
	}
}

func mergeFull(base, theirs, ours any) (any, bool, error) {
	if Equal(theirs, base) {
		return DeepCopy(ours), !Equal(ours, base), nil
	}
	if Equal(ours, base) {
		return DeepCopy(theirs), true, nil
	}
	if Equal(theirs, ours) {
		return DeepCopy(ours), true, nil
	}
	return nil, false, &syncerr.Error{
		Kind:    syncerr.KindStateConflict,
		Message: "both sides changed the field to different values",
	}
}

func mergeIncremental(base, theirs, ours any) (any, bool, error) {
	result, ok := utils.AddDelta(theirs, base, ours)
	if !ok {
		return nil, false, syncerr.Validation("incremental merge requires numeric values, got %T, %T, %T", base, theirs, ours)
	}
	return result, !Equal(result, base), nil
}

func mergeUnion(base, theirs, ours any) (any, bool, error) {
	if base == nil {
		switch {
		case isMap(theirs) || isMap(ours):
			base = map[string]any{}
		case isList(theirs) || isList(ours):
			base = []any{}
		}
	}

	switch b := base.(type) {
	case map[string]any:
		result := CopyDocument(b)
		for _, side := range []any{theirs, ours} {
			if side == nil {
				continue
			}
			m, ok := side.(map[string]any)
			if !ok {
				return nil, false, syncerr.Validation("merge mode expects a map, got %T", side)
			}
			for k, v := range m {
				result[k] = DeepCopy(v)
			}
		}
		return result, !Equal(result, b), nil
	case []any:
		result := make([]any, 0, len(b))
		for _, side := range []any{b, theirs, ours} {
			if side == nil {
				continue
			}
			list, ok := side.([]any)
			if !ok {
				return nil, false, syncerr.Validation("merge mode expects a list, got %T", side)
			}
			for _, item := range list {
				if !containsValue(result, item) {
					result = append(result, DeepCopy(item))
				}
			}
		}
		return result, !Equal(result, b), nil
	default:
		// Scalars have nothing to union.
		return mergeFull(base, theirs, ours)
	}
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

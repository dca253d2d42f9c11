package fieldmerge

import (
	"reflect"
	"sort"

	"character-sync/core/utils"
)

// Equal compares two document values. Numbers compare by value regardless of
// their Go type, so a decoded 3.0 equals an int 3.
func Equal(a, b any) bool {
	if ai, ok := utils.ToInt64(a); ok {
		if bi, ok := utils.ToInt64(b); ok {
			return ai == bi
		}
	}
	if an, ok := utils.ToNumber(a); ok {
		bn, ok := utils.ToNumber(b)
		return ok && an == bn
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// DeepCopy copies maps and lists recursively. Scalars are returned as is.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyDocument(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = DeepCopy(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// CopyDocument deep-copies a document. A nil document copies to an empty one.
func CopyDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = DeepCopy(v)
	}
	return out
}

// Diff compares old and new. Maps recurse and report the dotted path of every
// key that changed; lists and scalars are compared as a whole. For two
// non-map roots the path list is empty and only the boolean is meaningful.
func Diff(old, new any) (bool, []string) {
	changed, paths := DiffSegments(old, new)
	return changed, render(paths)
}

// DiffSegments is Diff returning parsed paths, which stay exact for keys
// containing '.' or '['.
func DiffSegments(old, new any) (bool, []Path) {
	var paths []Path
	changed := diffInto(nil, old, new, &paths)
	return changed, paths
}

func diffInto(prefix Path, old, new any, paths *[]Path) bool {
	om, oldIsMap := old.(map[string]any)
	nm, newIsMap := new.(map[string]any)
	if oldIsMap && newIsMap {
		changed := false
		for _, k := range unionKeys(om, nm) {
			ov, inOld := om[k]
			nv, inNew := nm[k]
			p := prefix.Child(k)
			if inOld != inNew {
				*paths = append(*paths, p)
				changed = true
				continue
			}
			if diffInto(p, ov, nv, paths) {
				changed = true
			}
		}
		return changed
	}

	if Equal(old, new) {
		return false
	}
	if len(prefix) > 0 {
		*paths = append(*paths, prefix)
	}
	return true
}

// DiffPatch reports the paths a partial patch document would change on base.
// Only keys present in patch are considered, so fields a caller did not send
// are never reported as removed.
func DiffPatch(base, patch map[string]any) []string {
	return render(DiffPatchSegments(base, patch))
}

// DiffPatchSegments is DiffPatch returning parsed paths.
func DiffPatchSegments(base, patch map[string]any) []Path {
	var paths []Path
	diffPatchInto(nil, base, patch, &paths)
	return paths
}

func diffPatchInto(prefix Path, base, patch map[string]any, paths *[]Path) {
	for _, k := range sortedKeys(patch) {
		pv := patch[k]
		p := prefix.Child(k)
		bv, ok := base[k]
		if pm, isMap := pv.(map[string]any); isMap {
			if bm, baseIsMap := bv.(map[string]any); baseIsMap {
				diffPatchInto(p, bm, pm, paths)
				continue
			}
		}
		if !ok || !Equal(bv, pv) {
			*paths = append(*paths, p)
		}
	}
}

func render(paths []Path) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

// Patch deep-merges a partial document into doc: nested maps merge key by
// key, every other value replaces. doc is mutated.
func Patch(doc, patch map[string]any) {
	for k, pv := range patch {
		if pm, ok := pv.(map[string]any); ok {
			if dm, ok := doc[k].(map[string]any); ok {
				Patch(dm, pm)
				continue
			}
		}
		doc[k] = DeepCopy(pv)
	}
}

// TopLevelKeys returns the distinct first keys of paths.
func TopLevelKeys(paths []Path) map[string]struct{} {
	keys := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if len(p) > 0 {
			keys[p[0].Key] = struct{}{}
		}
	}
	return keys
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

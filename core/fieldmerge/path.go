package fieldmerge

import (
	"strconv"
	"strings"

	"character-sync/core/syncerr"
)

// Segment is one step of a parsed field path: a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is a parsed field path. Keys are taken verbatim, so a map key that
// contains '.' or '[' is still one segment.
type Path []Segment

// String renders the path in dot/bracket form. Keys containing path
// metacharacters do not round-trip through ParsePath.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if !seg.IsIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// Child returns a copy of p extended with key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: key})
}

// ParsePath splits a dot/bracket path expression into segments.
// The first segment must be a key.
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, syncerr.Validation("empty field path")
	}

	var segments []Segment
	i := 0
	expectKey := true
	for i < len(path) {
		switch c := path[i]; {
		case c == '[':
			if expectKey {
				return nil, syncerr.Validation("list index must follow a key in field path %q", path)
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, syncerr.Validation("unbalanced bracket in field path %q", path)
			}
			idx, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || idx < 0 {
				return nil, syncerr.Validation("invalid list index %q in field path %q", path[i+1:i+end], path)
			}
			segments = append(segments, Segment{Index: idx, IsIndex: true})
			i += end + 1
			expectKey = false
		case c == '.':
			if expectKey {
				return nil, syncerr.Validation("empty segment in field path %q", path)
			}
			i++
			expectKey = true
			if i == len(path) {
				return nil, syncerr.Validation("field path %q ends with a dot", path)
			}
		case c == ']':
			return nil, syncerr.Validation("unbalanced bracket in field path %q", path)
		default:
			if !expectKey {
				return nil, syncerr.Validation("missing dot before key in field path %q", path)
			}
			end := strings.IndexAny(path[i:], ".[]")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, Segment{Key: path[i : i+end]})
			i += end
			expectKey = false
		}
	}
	return segments, nil
}

// TopLevel returns the first key of a path ("stats" for "stats.hp").
// Malformed paths return the input unchanged.
func TopLevel(path string) string {
	segments, err := ParsePath(path)
	if err != nil {
		return path
	}
	return segments[0].Key
}

// Extract resolves path against doc. A path that does not resolve yields
// (nil, nil); only a malformed path is an error.
func Extract(doc any, path string) (any, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	v, _ := walk(doc, segments)
	return v, nil
}

// Lookup is Extract that also reports whether the path resolved, so an
// explicit null can be told apart from a missing key.
func Lookup(doc any, path string) (any, bool, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, false, err
	}
	v, ok := walk(doc, segments)
	return v, ok, nil
}

// LookupSegments resolves an already parsed path.
func LookupSegments(doc any, path Path) (any, bool) {
	return walk(doc, path)
}

func walk(doc any, segments []Segment) (any, bool) {
	cur := doc
	for _, seg := range segments {
		if seg.IsIndex {
			list, ok := cur.([]any)
			if !ok || seg.Index >= len(list) {
				return nil, false
			}
			cur = list[seg.Index]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg.Key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assign sets value at path, creating intermediate maps as needed.
// Lists are never created implicitly; indexing past the end is an error.
func Assign(doc map[string]any, path string, value any) error {
	segments, err := ParsePath(path)
	if err != nil {
		return err
	}
	return AssignSegments(doc, segments, value)
}

// AssignSegments is Assign for an already parsed path.
func AssignSegments(doc map[string]any, path Path, value any) error {
	if len(path) == 0 {
		return syncerr.Validation("empty field path")
	}

	var cur any = doc
	for i, seg := range path {
		last := i == len(path)-1
		if seg.IsIndex {
			list, ok := cur.([]any)
			if !ok || seg.Index >= len(list) {
				return syncerr.Validation("index %d out of range in field path %q", seg.Index, path.String())
			}
			if last {
				list[seg.Index] = value
				return nil
			}
			next, err := descend(list[seg.Index], path[i+1], path)
			if err != nil {
				return err
			}
			list[seg.Index] = next
			cur = next
			continue
		}

		m, ok := cur.(map[string]any)
		if !ok {
			return syncerr.Validation("cannot set key %q on a non-map value in field path %q", seg.Key, path.String())
		}
		if last {
			m[seg.Key] = value
			return nil
		}
		next, err := descend(m[seg.Key], path[i+1], path)
		if err != nil {
			return err
		}
		m[seg.Key] = next
		cur = next
	}
	return nil
}

// CheckAssign reports the error AssignSegments would return for path,
// without touching doc.
func CheckAssign(doc map[string]any, path Path) error {
	if len(path) == 0 {
		return syncerr.Validation("empty field path")
	}
	var cur any = doc
	for i, seg := range path {
		if cur == nil {
			// Missing slots become fresh maps; only a list step can fail.
			if seg.IsIndex {
				return syncerr.Validation("no list to index in field path %q", path.String())
			}
			continue
		}
		if seg.IsIndex {
			list, ok := cur.([]any)
			if !ok || seg.Index >= len(list) {
				return syncerr.Validation("index %d out of range in field path %q", seg.Index, path.String())
			}
			cur = list[seg.Index]
		} else {
			m, ok := cur.(map[string]any)
			if !ok {
				return syncerr.Validation("cannot set key %q on a non-map value in field path %q", seg.Key, path.String())
			}
			cur = m[seg.Key]
		}
		if i < len(path)-1 && cur != nil {
			switch cur.(type) {
			case map[string]any, []any:
			default:
				return syncerr.Validation("cannot descend into scalar in field path %q", path.String())
			}
		}
	}
	return nil
}

// descend returns the container to continue into, creating a map when the
// slot is empty and the next step is a key.
func descend(child any, next Segment, path Path) (any, error) {
	if child == nil {
		if next.IsIndex {
			return nil, syncerr.Validation("no list to index in field path %q", path.String())
		}
		return map[string]any{}, nil
	}
	switch child.(type) {
	case map[string]any, []any:
		return child, nil
	default:
		return nil, syncerr.Validation("cannot descend into scalar in field path %q", path.String())
	}
}

// Delete removes the key at path. Unresolvable paths are a no-op.
func Delete(doc map[string]any, path string) error {
	segments, err := ParsePath(path)
	if err != nil {
		return err
	}
	return DeleteSegments(doc, segments)
}

// DeleteSegments is Delete for an already parsed path.
func DeleteSegments(doc map[string]any, path Path) error {
	if len(path) == 0 {
		return syncerr.Validation("empty field path")
	}
	leaf := path[len(path)-1]
	if leaf.IsIndex {
		return syncerr.Validation("cannot delete list element in field path %q", path.String())
	}
	parent, ok := walk(doc, path[:len(path)-1])
	if !ok {
		return nil
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, leaf.Key)
	}
	return nil
}

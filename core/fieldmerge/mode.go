package fieldmerge

import (
	"strings"

	"character-sync/core/syncerr"
)

// Mode is the synchronization strategy declared for a field.
type Mode string

const (
	// ModeFull replaces the value, detecting concurrent edits.
	ModeFull Mode = "full"
	// ModeIncremental adds deltas from both sides.
	ModeIncremental Mode = "incremental"
	// ModeMerge unions lists and shallow-merges maps.
	ModeMerge Mode = "merge"
)

// ParseMode accepts a mode name in any case. The empty string means ModeFull.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeFull):
		return ModeFull, nil
	case string(ModeIncremental):
		return ModeIncremental, nil
	case string(ModeMerge):
		return ModeMerge, nil
	default:
		return "", syncerr.Validation("unknown sync mode %q", s)
	}
}

// UnmarshalText lets modes arrive as "FULL", "incremental", etc.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

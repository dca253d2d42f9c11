package reconcile

import (
	"time"

	"character-sync/core/fieldmerge"
)

// ChangeDetector produces field-level changes between two snapshots.
type ChangeDetector struct {
	spec *Spec
	now  func() time.Time
}

// NewChangeDetector creates a detector. spec may be nil.
func NewChangeDetector(spec *Spec) *ChangeDetector {
	return &ChangeDetector{spec: spec, now: time.Now}
}

// Detect returns the changes between old and new. If fields is empty the
// Spec's allow-list is used, and if that is empty too every changed path is
// reported in sorted order. A field is changed iff its extracted values differ.
func (d *ChangeDetector) Detect(old, new map[string]any, fields []string) ([]StateChange, error) {
	if len(fields) == 0 && d.spec != nil {
		fields = d.spec.Fields
	}
	if len(fields) == 0 {
		_, fields = fieldmerge.Diff(old, new)
	}

	ts := d.now().UTC()
	changes := make([]StateChange, 0, len(fields))
	for _, field := range fields {
		ov, err := fieldmerge.Extract(old, field)
		if err != nil {
			return nil, err
		}
		nv, err := fieldmerge.Extract(new, field)
		if err != nil {
			return nil, err
		}
		if fieldmerge.Equal(ov, nv) {
			continue
		}
		changes = append(changes, StateChange{
			FieldPath: field,
			OldValue:  fieldmerge.DeepCopy(ov),
			NewValue:  fieldmerge.DeepCopy(nv),
			SyncMode:  d.spec.ModeFor(field),
			Timestamp: ts,
		})
	}
	return changes, nil
}

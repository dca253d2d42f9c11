package metrics

import "time"

// ConflictOutcome labels how a divergent apply ended.
type ConflictOutcome string

const (
	ConflictMerged   ConflictOutcome = "merged"
	ConflictRejected ConflictOutcome = "rejected"
	ConflictEvicted  ConflictOutcome = "evicted"
)

// Recorder defines observability hooks for the version manager.
type Recorder interface {
	IncVersionsCreated()
	IncConflict(outcome ConflictOutcome)
	AddEvictions(n int)
	ObserveApplyDuration(d time.Duration, success bool)
	IncCleanupRun(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncVersionsCreated()                      {}
func (NoopRecorder) IncConflict(ConflictOutcome)              {}
func (NoopRecorder) AddEvictions(int)                         {}
func (NoopRecorder) ObserveApplyDuration(time.Duration, bool) {}
func (NoopRecorder) IncCleanupRun(bool)                       {}

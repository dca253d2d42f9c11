package versioning

import (
	"context"
	"sync"
	"time"

	"character-sync/core/fieldmerge"
	"character-sync/core/metrics"
	"character-sync/core/syncerr"

	"github.com/google/uuid"
)

// memRepo is an in-memory CharacterRepository.
type memRepo struct {
	mu          sync.Mutex
	entities    map[uuid.UUID]map[string]any
	updates     int
	updateErr   error
	updateDelay time.Duration
}

func newMemRepo() *memRepo {
	return &memRepo{entities: make(map[uuid.UUID]map[string]any)}
}

func (r *memRepo) put(id uuid.UUID, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[id] = fieldmerge.CopyDocument(data)
}

func (r *memRepo) state(id uuid.UUID) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fieldmerge.CopyDocument(r.entities[id])
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.entities[id]
	if !ok {
		return nil, nil
	}
	return &Entity{ID: id, CharacterData: fieldmerge.CopyDocument(data)}, nil
}

func (r *memRepo) Update(_ context.Context, id uuid.UUID, entity *Entity) error {
	if r.updateDelay > 0 {
		time.Sleep(r.updateDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.entities[id]; !ok {
		return syncerr.EntityNotFound(id.String())
	}
	r.entities[id] = fieldmerge.CopyDocument(entity.CharacterData)
	r.updates++
	return nil
}

// memArchiver records archived versions.
type memArchiver struct {
	mu       sync.Mutex
	versions []StateVersion
	err      error
}

func (a *memArchiver) Archive(_ context.Context, versions []StateVersion) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.versions = append(a.versions, versions...)
	return nil
}

func (a *memArchiver) numbers() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, len(a.versions))
	for i, v := range a.versions {
		out[i] = v.Version
	}
	return out
}

// countingRecorder tallies recorder calls.
type countingRecorder struct {
	mu        sync.Mutex
	created   int
	conflicts map[metrics.ConflictOutcome]int
	evictions int
	applies   int
	cleanups  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{conflicts: make(map[metrics.ConflictOutcome]int)}
}

func (c *countingRecorder) IncVersionsCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
}

func (c *countingRecorder) IncConflict(outcome metrics.ConflictOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[outcome]++
}

func (c *countingRecorder) AddEvictions(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictions += n
}

func (c *countingRecorder) ObserveApplyDuration(time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applies++
}

func (c *countingRecorder) IncCleanupRun(bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups++
}

func (c *countingRecorder) conflictCount(outcome metrics.ConflictOutcome) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflicts[outcome]
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func intPtr(v int) *int { return &v }

package versioning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"character-sync/core/fieldmerge"
	"character-sync/core/syncerr"

	"github.com/google/uuid"
)

// Store holds the per-entity version ledgers and their locks.
//
// Ledger reads and writes are individually safe. Read-modify-write
// sequences must hold the entity lock obtained from Lock.
type Store struct {
	repo       CharacterRepository
	maxHistory int
	now        func() time.Time

	mu      sync.RWMutex
	ledgers map[uuid.UUID][]StateVersion
	locks   map[uuid.UUID]chan struct{}
}

// NewStore creates an empty store that seeds ledgers from repo.
func NewStore(repo CharacterRepository, maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &Store{
		repo:       repo,
		maxHistory: maxHistory,
		now:        time.Now,
		ledgers:    make(map[uuid.UUID][]StateVersion),
		locks:      make(map[uuid.UUID]chan struct{}),
	}
}

// Lock acquires the entity's lock, waiting until it is free or ctx is done.
// Locks are created on first use and never removed.
func (s *Store) Lock(ctx context.Context, id uuid.UUID) (func(), error) {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[id] = lock
	}
	s.mu.Unlock()

	select {
	case lock <- struct{}{}:
		return func() { <-lock }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to lock entity %s: %w", id, ctx.Err())
	}
}

// History returns the retained ledger, oldest first. An entity without a
// ledger is seeded from its live state as version 1.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]StateVersion, error) {
	if ledger, ok := s.ledger(id); ok {
		return ledger, nil
	}

	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, syncerr.Wrap(err, syncerr.KindInternal, id.String(), "failed to load entity")
	}
	if entity == nil {
		return nil, syncerr.EntityNotFound(id.String())
	}
	return s.seed(id, entity.CharacterData), nil
}

// Latest returns the newest retained version, seeding like History.
func (s *Store) Latest(ctx context.Context, id uuid.UUID) (StateVersion, error) {
	ledger, err := s.History(ctx, id)
	if err != nil {
		return StateVersion{}, err
	}
	return ledger[len(ledger)-1], nil
}

// Version finds a retained version, scanning newest first. A version that
// was never created or has been evicted is a state conflict.
func (s *Store) Version(ctx context.Context, id uuid.UUID, version int) (StateVersion, error) {
	ledger, err := s.History(ctx, id)
	if err != nil {
		return StateVersion{}, err
	}
	for i := len(ledger) - 1; i >= 0; i-- {
		if ledger[i].Version == version {
			return ledger[i], nil
		}
	}
	return StateVersion{}, syncerr.StateConflict(id.String(), "version %d is not retained", version)
}

// Peek returns the newest version without seeding.
func (s *Store) Peek(id uuid.UUID) (StateVersion, bool) {
	ledger, ok := s.ledger(id)
	if !ok {
		return StateVersion{}, false
	}
	return ledger[len(ledger)-1], true
}

// Append adds v to the entity's ledger and returns the versions that fell
// out of the retention window, oldest first.
func (s *Store) Append(id uuid.UUID, v StateVersion) []StateVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[id] = append(s.ledgers[id], v)
	return s.trimLocked(id)
}

// Trim enforces the retention window on one ledger.
func (s *Store) Trim(id uuid.UUID) []StateVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trimLocked(id)
}

// EntityIDs lists entities that have a ledger, in a stable order.
func (s *Store) EntityIDs() []uuid.UUID {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *Store) ledger(id uuid.UUID) ([]StateVersion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ledger, ok := s.ledgers[id]
	if !ok || len(ledger) == 0 {
		return nil, false
	}
	return append([]StateVersion(nil), ledger...), true
}

func (s *Store) seed(id uuid.UUID, data map[string]any) []StateVersion {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ledger := s.ledgers[id]; len(ledger) > 0 {
		return append([]StateVersion(nil), ledger...)
	}
	first := StateVersion{
		EntityID:  id,
		Version:   1,
		StateData: fieldmerge.CopyDocument(data),
		Timestamp: s.now().UTC(),
	}
	s.ledgers[id] = []StateVersion{first}
	return []StateVersion{first}
}

func (s *Store) trimLocked(id uuid.UUID) []StateVersion {
	ledger := s.ledgers[id]
	excess := len(ledger) - s.maxHistory
	if excess <= 0 {
		return nil
	}
	evicted := append([]StateVersion(nil), ledger[:excess]...)
	s.ledgers[id] = append([]StateVersion(nil), ledger[excess:]...)
	return evicted
}

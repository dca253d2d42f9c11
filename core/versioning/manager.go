package versioning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"character-sync/core/fieldmerge"
	"character-sync/core/metrics"
	"character-sync/core/syncerr"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager is the public entry point of the versioning engine.
type Manager struct {
	repo     CharacterRepository
	store    *Store
	resolver Resolver
	cfg      Config
	logger   *zap.Logger
	recorder metrics.Recorder
	archiver Archiver
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithArchiver sets where evicted versions are sent.
func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

// WithClock overrides the version timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a manager backed by repo.
func NewManager(repo CharacterRepository, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	m := &Manager{
		repo:     repo,
		store:    NewStore(repo, cfg.MaxVersionHistory),
		cfg:      cfg,
		logger:   logger,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.store.now = m.now
	return m
}

// Start launches the background retention cleanup. It stops when Stop is
// called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return fmt.Errorf("version manager already started")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.stopped = make(chan struct{})
	go m.cleanupLoop(loopCtx, m.stopped)
	m.logger.Info("Version manager started",
		zap.Int("max_version_history", m.cfg.MaxVersionHistory),
		zap.Duration("cleanup_interval", m.cfg.CleanupInterval))
	return nil
}

// Stop cancels the cleanup loop and waits for it to exit, or for ctx.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.cancel, m.stopped = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-stopped:
		m.logger.Info("Version manager stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for cleanup loop: %w", ctx.Err())
	}
}

// GetCharacterVersion returns a retained version, or the newest one for Latest.
func (m *Manager) GetCharacterVersion(ctx context.Context, id uuid.UUID, version int) (StateVersion, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return StateVersion{}, err
	}
	defer unlock()

	var v StateVersion
	if version == Latest {
		v, err = m.store.Latest(ctx, id)
	} else {
		v, err = m.store.Version(ctx, id, version)
	}
	if err != nil {
		return StateVersion{}, err
	}
	return v.clone(), nil
}

// TrackedEntities lists the entities with an in-memory version ledger.
func (m *Manager) TrackedEntities() []uuid.UUID {
	return m.store.EntityIDs()
}

// History returns the retained versions, oldest first.
func (m *Manager) History(ctx context.Context, id uuid.UUID) ([]StateVersion, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ledger, err := m.store.History(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]StateVersion, len(ledger))
	for i, v := range ledger {
		out[i] = v.clone()
	}
	return out, nil
}

// CreateVersion snapshots entity's state as the next version. A nil parent
// links the new version to the previous newest one.
func (m *Manager) CreateVersion(ctx context.Context, entity *Entity, parent *int) (StateVersion, error) {
	if entity == nil {
		return StateVersion{}, syncerr.Validation("nil entity")
	}
	unlock, err := m.store.Lock(ctx, entity.ID)
	if err != nil {
		return StateVersion{}, err
	}

	next := StateVersion{
		EntityID:  entity.ID,
		Version:   1,
		StateData: fieldmerge.CopyDocument(entity.CharacterData),
		Timestamp: m.now().UTC(),
	}
	if last, ok := m.store.Peek(entity.ID); ok {
		next.Version = last.Version + 1
		if parent == nil {
			p := last.Version
			parent = &p
		}
	}
	if parent != nil {
		p := *parent
		next.ParentVersion = &p
	}
	evicted := m.store.Append(entity.ID, next)
	unlock()

	m.recorder.IncVersionsCreated()
	m.archive(ctx, evicted)
	return next.clone(), nil
}

// InitialVersion records entity's state as version 1 unless the entity
// already has a ledger, in which case its first retained version is
// returned. It is safe to race with the lazy seeding done by reads.
func (m *Manager) InitialVersion(ctx context.Context, entity *Entity) (StateVersion, error) {
	if entity == nil {
		return StateVersion{}, syncerr.Validation("nil entity")
	}
	unlock, err := m.store.Lock(ctx, entity.ID)
	if err != nil {
		return StateVersion{}, err
	}
	defer unlock()

	if ledger, ok := m.store.ledger(entity.ID); ok {
		return ledger[0].clone(), nil
	}
	first := StateVersion{
		EntityID:  entity.ID,
		Version:   1,
		StateData: fieldmerge.CopyDocument(entity.CharacterData),
		Timestamp: m.now().UTC(),
	}
	m.store.Append(entity.ID, first)
	m.recorder.IncVersionsCreated()
	return first.clone(), nil
}

// ApplyChanges applies a partial document to the entity and records the
// result as a new version.
//
// With no base version, or the current one, changes apply directly. An
// older base goes through the Resolver: disjoint changes merge and report
// hadConflict; overlapping ones fail with a state conflict and nothing is
// written. A missing entity is a state conflict wrapping entity_not_found.
func (m *Manager) ApplyChanges(ctx context.Context, id uuid.UUID, changes map[string]any, baseVersion *int) (_ StateVersion, hadConflict bool, err error) {
	start := time.Now()
	defer func() {
		m.recorder.ObserveApplyDuration(time.Since(start), err == nil)
	}()

	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return StateVersion{}, false, err
	}
	next, hadConflict, evicted, err := m.applyLocked(ctx, id, changes, baseVersion)
	unlock()
	if err != nil {
		return StateVersion{}, hadConflict, err
	}

	m.recorder.IncVersionsCreated()
	if hadConflict {
		m.recorder.IncConflict(metrics.ConflictMerged)
	}
	m.archive(ctx, evicted)
	return next.clone(), hadConflict, nil
}

func (m *Manager) applyLocked(ctx context.Context, id uuid.UUID, changes map[string]any, baseVersion *int) (StateVersion, bool, []StateVersion, error) {
	entityID := id.String()

	entity, err := m.repo.Get(ctx, id)
	if err != nil {
		return StateVersion{}, false, nil, syncerr.Wrap(err, syncerr.KindInternal, entityID, "failed to load entity")
	}
	if entity == nil {
		return StateVersion{}, false, nil, syncerr.Wrap(syncerr.EntityNotFound(entityID), syncerr.KindStateConflict, entityID, "entity does not exist")
	}
	current, err := m.store.Latest(ctx, id)
	if err != nil {
		return StateVersion{}, false, nil, err
	}

	var (
		state       map[string]any
		hadConflict bool
	)
	if baseVersion == nil || *baseVersion == current.Version {
		state = fieldmerge.CopyDocument(entity.CharacterData)
		fieldmerge.Patch(state, changes)
	} else {
		base, err := m.store.Version(ctx, id, *baseVersion)
		if err != nil {
			m.recorder.IncConflict(metrics.ConflictEvicted)
			return StateVersion{}, true, nil, err
		}
		state, err = m.resolver.Resolve(entityID, base, entity.CharacterData, changes)
		if err != nil {
			if syncerr.IsConflict(err) {
				m.recorder.IncConflict(metrics.ConflictRejected)
				m.logger.Info("Rejected conflicting changes",
					zap.String("entity_id", entityID),
					zap.Int("base_version", *baseVersion),
					zap.Int("current_version", current.Version),
					zap.Error(err))
				return StateVersion{}, true, nil, err
			}
			return StateVersion{}, false, nil, err
		}
		hadConflict = true
	}

	if err := m.repo.Update(ctx, id, &Entity{ID: id, CharacterData: state}); err != nil {
		if syncerr.IsNotFound(err) {
			return StateVersion{}, false, nil, syncerr.Wrap(err, syncerr.KindStateConflict, entityID, "entity vanished during update")
		}
		return StateVersion{}, false, nil, syncerr.Wrap(err, syncerr.KindInternal, entityID, "failed to persist entity")
	}

	parent := current.Version
	next := StateVersion{
		EntityID:      id,
		Version:       current.Version + 1,
		StateData:     fieldmerge.CopyDocument(state),
		Timestamp:     m.now().UTC(),
		ParentVersion: &parent,
	}
	evicted := m.store.Append(id, next)
	return next, hadConflict, evicted, nil
}

func (m *Manager) archive(ctx context.Context, evicted []StateVersion) {
	if len(evicted) == 0 {
		return
	}
	m.recorder.AddEvictions(len(evicted))
	if m.archiver == nil {
		return
	}
	if err := m.archiver.Archive(ctx, evicted); err != nil {
		m.logger.Warn("Failed to archive evicted versions",
			zap.String("entity_id", evicted[0].EntityID.String()),
			zap.Int("count", len(evicted)),
			zap.Error(err))
	}
}


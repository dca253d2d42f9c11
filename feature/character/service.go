package character

import (
	"context"
	"fmt"

	"character-sync/core/reconcile"
	"character-sync/core/syncerr"
	"character-sync/core/versioning"
	"character-sync/feature/character/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveReader reads versions evicted from the retention window.
type ArchiveReader interface {
	Versions(ctx context.Context, id uuid.UUID) ([]int, error)
	Fetch(ctx context.Context, id uuid.UUID, version int) (versioning.StateVersion, error)
}

// SyncResult is the outcome of a batch sync.
type SyncResult struct {
	// Version is the version after the sync. It is the previous latest
	// version when no change applied.
	Version     int                       `json:"version"`
	HadConflict bool                      `json:"had_conflict"`
	Applied     []reconcile.StateChange   `json:"applied"`
	Skipped     []reconcile.SkippedChange `json:"skipped"`
	Summary     reconcile.PlanSummary     `json:"summary"`
}

// Service orchestrates character storage and versioning.
type Service struct {
	repo       *Repository
	manager    *versioning.Manager
	reconciler *reconcile.Reconciler
	archive    ArchiveReader
	logger     *zap.Logger
}

// NewService creates a character service. archive may be nil.
func NewService(repo *Repository, manager *versioning.Manager, reconciler *reconcile.Reconciler, archive ArchiveReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		manager:    manager,
		reconciler: reconciler,
		archive:    archive,
		logger:     logger,
	}
}

// CreateCharacter stores a new character and records its first version.
func (s *Service) CreateCharacter(ctx context.Context, req models.CreateCharacterRequest) (*models.Character, versioning.StateVersion, error) {
	if req.Name == "" {
		return nil, versioning.StateVersion{}, syncerr.Validation("name is required")
	}
	c := &models.Character{Name: req.Name, CharacterData: req.CharacterData}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, versioning.StateVersion{}, err
	}
	v, err := s.manager.InitialVersion(ctx, &versioning.Entity{ID: c.ID, CharacterData: c.CharacterData})
	if err != nil {
		return nil, versioning.StateVersion{}, err
	}
	s.logger.Info("Character created", zap.String("character_id", c.ID.String()), zap.Int("version", v.Version))
	return c, v, nil
}

// GetCharacter returns the stored character.
func (s *Service) GetCharacter(ctx context.Context, id uuid.UUID) (*models.Character, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, syncerr.EntityNotFound(id.String())
	}
	return c, nil
}

// GetVersion returns a retained version, or the latest for versioning.Latest.
func (s *Service) GetVersion(ctx context.Context, id uuid.UUID, version int) (versioning.StateVersion, error) {
	return s.manager.GetCharacterVersion(ctx, id, version)
}

// History returns the retained versions, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]versioning.StateVersion, error) {
	return s.manager.History(ctx, id)
}

// ApplyChanges applies a partial document through the version manager.
func (s *Service) ApplyChanges(ctx context.Context, id uuid.UUID, changes map[string]any, baseVersion *int) (versioning.StateVersion, bool, error) {
	if len(changes) == 0 {
		return versioning.StateVersion{}, false, syncerr.Validation("changes must not be empty")
	}
	return s.manager.ApplyChanges(ctx, id, changes, baseVersion)
}

// Sync replays field-level changes against the live state and persists the
// ones that still apply. Stale changes are reported, not fatal.
func (s *Service) Sync(ctx context.Context, id uuid.UUID, baseState map[string]any, changes []reconcile.StateChange) (*SyncResult, error) {
	latest, err := s.manager.GetCharacterVersion(ctx, id, versioning.Latest)
	if err != nil {
		return nil, err
	}
	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, syncerr.EntityNotFound(id.String())
	}

	plan, err := s.reconciler.Reconcile(baseState, entity.CharacterData, changes)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{
		Version: latest.Version,
		Applied: plan.Applied,
		Skipped: plan.Skipped,
		Summary: plan.Summary,
	}
	if len(plan.Applied) == 0 {
		return result, nil
	}

	v, hadConflict, err := s.manager.ApplyChanges(ctx, id, plan.Patch(), &latest.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to persist sync: %w", err)
	}
	result.Version = v.Version
	result.HadConflict = hadConflict
	return result, nil
}

// ArchivedVersions lists the archived version numbers of a character.
func (s *Service) ArchivedVersions(ctx context.Context, id uuid.UUID) ([]int, error) {
	if s.archive == nil {
		return nil, syncerr.Validation("version archive is disabled")
	}
	return s.archive.Versions(ctx, id)
}

// ArchivedVersion reads one archived version.
func (s *Service) ArchivedVersion(ctx context.Context, id uuid.UUID, version int) (versioning.StateVersion, error) {
	if s.archive == nil {
		return versioning.StateVersion{}, syncerr.Validation("version archive is disabled")
	}
	return s.archive.Fetch(ctx, id, version)
}

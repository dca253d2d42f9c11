package integrity

import (
	"context"
	"fmt"

	"character-sync/core/storage"
	"character-sync/core/versioning"
	"character-sync/feature/character/models"
	"character-sync/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db      *gorm.DB
	client  storage.Client
	storage storage.Config
	ledger  checks.LedgerSource
	repo    versioning.CharacterRepository
	logger  *zap.Logger
}

// NewService creates a new integrity service. client may be nil when the
// version archive is disabled.
func NewService(db *gorm.DB, client storage.Client, storageCfg storage.Config, ledger checks.LedgerSource, repo versioning.CharacterRepository, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		client:  client,
		storage: storageCfg,
		ledger:  ledger,
		repo:    repo,
		logger:  logger,
	}
}

// CheckSchema validates the characters table.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, &models.Character{})
}

// CheckArchive inspects the version archive bucket.
func (s *Service) CheckArchive(ctx context.Context) (*checks.ArchiveReport, error) {
	if s.client == nil {
		return nil, fmt.Errorf("version archive is disabled")
	}
	return checks.CheckArchive(ctx, s.client, s.storage.Bucket, s.storage.Prefix)
}

// FixArchive creates the archive bucket.
func (s *Service) FixArchive(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("version archive is disabled")
	}
	return checks.FixArchive(ctx, s.client, s.storage.Bucket, s.storage.Region)
}

// CheckLedger compares tracked ledgers with the stored characters.
func (s *Service) CheckLedger(ctx context.Context) (*checks.LedgerReport, error) {
	return checks.CheckLedger(ctx, s.ledger, s.repo)
}

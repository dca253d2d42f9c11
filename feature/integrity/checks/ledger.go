package checks

import (
	"context"
	"fmt"

	"character-sync/core/fieldmerge"
	"character-sync/core/versioning"

	"github.com/google/uuid"
)

// LedgerSource exposes the in-memory version ledgers.
type LedgerSource interface {
	TrackedEntities() []uuid.UUID
	GetCharacterVersion(ctx context.Context, id uuid.UUID, version int) (versioning.StateVersion, error)
}

// LedgerReport lists tracked characters whose newest version no longer
// matches the stored row.
type LedgerReport struct {
	Tracked int      `json:"tracked"`
	Drifted []string `json:"drifted"`
	Missing []string `json:"missing"`
}

// CheckLedger compares the newest retained version of every tracked entity
// with its live repository state. Drift means the row was written around
// the version manager.
func CheckLedger(ctx context.Context, ledger LedgerSource, repo versioning.CharacterRepository) (*LedgerReport, error) {
	ids := ledger.TrackedEntities()
	report := &LedgerReport{Tracked: len(ids), Drifted: []string{}, Missing: []string{}}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		latest, err := ledger.GetCharacterVersion(ctx, id, versioning.Latest)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger for %s: %w", id, err)
		}
		entity, err := repo.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load character %s: %w", id, err)
		}
		if entity == nil {
			report.Missing = append(report.Missing, id.String())
			continue
		}
		if !fieldmerge.Equal(latest.StateData, entity.CharacterData) {
			report.Drifted = append(report.Drifted, id.String())
		}
	}
	return report, nil
}

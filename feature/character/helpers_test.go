package character_test

import (
	"testing"

	"character-sync/core/database"
	"character-sync/core/fieldmerge"
	"character-sync/core/reconcile"
	"character-sync/core/versioning"
	"character-sync/feature/character"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	repo    *character.Repository
	manager *versioning.Manager
	service *character.Service
}

func newFixture(t *testing.T, cfg versioning.Config, archive character.ArchiveReader) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	repo := character.NewRepository(db)
	require.NoError(t, repo.Prepare(true))

	logger := zap.NewNop()
	manager := versioning.NewManager(repo, cfg, logger)
	spec := &reconcile.Spec{FieldModes: map[string]fieldmerge.Mode{
		"gold":      fieldmerge.ModeIncremental,
		"inventory": fieldmerge.ModeMerge,
	}}
	service := character.NewService(repo, manager, reconcile.NewReconciler(spec, logger), archive, logger)
	return &fixture{repo: repo, manager: manager, service: service}
}

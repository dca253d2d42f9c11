package checks

import (
	"context"
	"testing"

	"character-sync/core/versioning"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLedger map[uuid.UUID]map[string]any

func (s stubLedger) TrackedEntities() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

func (s stubLedger) GetCharacterVersion(_ context.Context, id uuid.UUID, _ int) (versioning.StateVersion, error) {
	return versioning.StateVersion{EntityID: id, Version: 1, StateData: s[id]}, nil
}

type stubRepo map[uuid.UUID]map[string]any

func (s stubRepo) Get(_ context.Context, id uuid.UUID) (*versioning.Entity, error) {
	data, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &versioning.Entity{ID: id, CharacterData: data}, nil
}

func (s stubRepo) Update(context.Context, uuid.UUID, *versioning.Entity) error { return nil }

func TestCheckLedger(t *testing.T) {
	inSync, drifted, gone := uuid.New(), uuid.New(), uuid.New()
	ledger := stubLedger{
		inSync:  {"hp": 10},
		drifted: {"hp": 10},
		gone:    {"hp": 1},
	}
	repo := stubRepo{
		inSync:  {"hp": 10.0},
		drifted: {"hp": 4.0},
	}

	report, err := CheckLedger(context.Background(), ledger, repo)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Tracked)
	assert.Equal(t, []string{drifted.String()}, report.Drifted)
	assert.Equal(t, []string{gone.String()}, report.Missing)
}

func TestCheckLedger_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CheckLedger(ctx, stubLedger{uuid.New(): {}}, stubRepo{})
	assert.ErrorIs(t, err, context.Canceled)
}

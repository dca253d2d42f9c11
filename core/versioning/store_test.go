package versioning

import (
	"context"
	"testing"
	"time"

	"character-sync/core/syncerr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_HistorySeedsFromRepository(t *testing.T) {
	repo := newMemRepo()
	id := uuid.New()
	repo.put(id, map[string]any{"hp": 10})
	store := NewStore(repo, 10)
	ctx := context.Background()

	ledger, err := store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, 1, ledger[0].Version)
	assert.Nil(t, ledger[0].ParentVersion)
	assert.Equal(t, map[string]any{"hp": 10}, ledger[0].StateData)

	// Seeding happens once; later repository changes do not reseed.
	repo.put(id, map[string]any{"hp": 1})
	ledger, err = store.History(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hp": 10}, ledger[0].StateData)
}

func TestStore_HistoryMissingEntity(t *testing.T) {
	store := NewStore(newMemRepo(), 10)

	_, err := store.History(context.Background(), uuid.New())
	assert.ErrorIs(t, err, syncerr.ErrEntityNotFound)
	assert.Empty(t, store.EntityIDs())
}

func TestStore_AppendTrimsOldestFirst(t *testing.T) {
	store := NewStore(newMemRepo(), 3)
	id := uuid.New()

	var evicted []StateVersion
	for v := 1; v <= 5; v++ {
		evicted = append(evicted, store.Append(id, StateVersion{EntityID: id, Version: v})...)
	}

	ledger, err := store.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, ledger, 3)
	for i, want := range []int{3, 4, 5} {
		assert.Equal(t, want, ledger[i].Version)
	}
	require.Len(t, evicted, 2)
	assert.Equal(t, 1, evicted[0].Version)
	assert.Equal(t, 2, evicted[1].Version)
}

func TestStore_Version(t *testing.T) {
	store := NewStore(newMemRepo(), 2)
	id := uuid.New()
	ctx := context.Background()
	for v := 1; v <= 3; v++ {
		store.Append(id, StateVersion{EntityID: id, Version: v})
	}

	v, err := store.Version(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Version)

	_, err = store.Version(ctx, id, 1)
	assert.ErrorIs(t, err, syncerr.ErrStateConflict, "evicted")
	assert.False(t, syncerr.IsNotFound(err))

	_, err = store.Version(ctx, id, 9)
	assert.ErrorIs(t, err, syncerr.ErrStateConflict, "never created")
}

func TestStore_Trim(t *testing.T) {
	store := NewStore(newMemRepo(), 5)
	id := uuid.New()
	for v := 1; v <= 4; v++ {
		store.Append(id, StateVersion{EntityID: id, Version: v})
	}
	assert.Empty(t, store.Trim(id))

	store.maxHistory = 2
	evicted := store.Trim(id)
	require.Len(t, evicted, 2)
	latest, ok := store.Peek(id)
	require.True(t, ok)
	assert.Equal(t, 4, latest.Version)
}

func TestStore_Lock(t *testing.T) {
	store := NewStore(newMemRepo(), 5)
	a, b := uuid.New(), uuid.New()

	unlockA, err := store.Lock(context.Background(), a)
	require.NoError(t, err)

	// Another entity is never blocked.
	unlockB, err := store.Lock(context.Background(), b)
	require.NoError(t, err)
	unlockB()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx, a)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlockA()
	unlockA, err = store.Lock(context.Background(), a)
	require.NoError(t, err)
	unlockA()
}

package syncerr_test

import (
	"errors"
	"fmt"
	"testing"

	"character-sync/core/syncerr"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syncerr.Kind
	}{
		{"NotFound", syncerr.EntityNotFound("abc"), syncerr.KindEntityNotFound},
		{"Conflict", syncerr.StateConflict("abc", "version %d evicted", 3), syncerr.KindStateConflict},
		{"Validation", syncerr.Validation("bad path %q", "a..b"), syncerr.KindValidation},
		{"Wrapped", fmt.Errorf("apply: %w", syncerr.StateConflict("abc", "overlap")), syncerr.KindStateConflict},
		{"Plain", errors.New("boom"), syncerr.KindInternal},
		{"Nil", nil, syncerr.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, syncerr.KindOf(tt.err))
		})
	}
}

func TestErrorsIs(t *testing.T) {
	notFound := syncerr.EntityNotFound("abc")
	conflict := syncerr.Wrap(notFound, syncerr.KindStateConflict, "abc", "entity vanished")

	assert.True(t, errors.Is(conflict, syncerr.ErrStateConflict))
	assert.True(t, errors.Is(conflict, syncerr.ErrEntityNotFound), "cause stays reachable")
	assert.False(t, errors.Is(notFound, syncerr.ErrStateConflict))
	assert.True(t, syncerr.IsConflict(conflict))
	assert.True(t, syncerr.IsNotFound(notFound))
	assert.Equal(t, syncerr.KindStateConflict, syncerr.KindOf(conflict))
}

func TestErrorMessage(t *testing.T) {
	err := syncerr.StateConflict("abc", "fields changed concurrently").WithPath("stats.hp")
	assert.Equal(t, "state_conflict: fields changed concurrently (entity abc) (field stats.hp)", err.Error())

	wrapped := syncerr.Wrap(errors.New("disk full"), syncerr.KindInternal, "", "persist")
	assert.Equal(t, "internal: persist: disk full", wrapped.Error())
}

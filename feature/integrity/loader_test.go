package integrity

import (
	"testing"

	"character-sync/core/storage"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoader(t *testing.T) {
	feature := NewFeature(nil)
	assert.Equal(t, "integrity", feature.Name())
	assert.False(t, feature.IsEnabled())

	svc := NewService(nil, nil, storage.Config{}, nil, nil, zap.NewNop())
	assert.False(t, NewFeature(svc).IsEnabled(), "disabled without a database")
}

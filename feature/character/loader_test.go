package character_test

import (
	"testing"

	"character-sync/core/versioning"
	"character-sync/feature/character"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoader(t *testing.T) {
	f := newFixture(t, versioning.Config{}, nil)
	feature := character.NewFeature(f.service, character.NewHandler(f.service, zap.NewNop()))

	assert.Equal(t, "characters", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	assert.NoError(t, feature.Load(app))
}

func TestLoader_DisabledWithoutService(t *testing.T) {
	feature := character.NewFeature(nil, nil)
	assert.False(t, feature.IsEnabled())
}

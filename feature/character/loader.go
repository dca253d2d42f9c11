package character

import (
	"github.com/gofiber/fiber/v2"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	enabled bool
}

// NewFeature creates the characters feature. It is disabled when no
// database is available.
func NewFeature(service *Service, handler *Handler) *Feature {
	return &Feature{service: service, handler: handler, enabled: service != nil}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "characters"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

package character

import (
	"errors"
	"strconv"

	"character-sync/core/logger"
	"character-sync/core/reconcile"
	"character-sync/core/syncerr"
	"character-sync/core/versioning"
	"character-sync/feature/character/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for characters.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the character routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/characters")
	group.Post("/", h.HandleCreateCharacter)
	group.Get("/:id", h.HandleGetCharacter)
	group.Get("/:id/versions", h.HandleGetLatestVersion)
	group.Get("/:id/versions/:version", h.HandleGetVersion)
	group.Get("/:id/history", h.HandleGetHistory)
	group.Post("/:id/changes", h.HandleApplyChanges)
	group.Post("/:id/sync", h.HandleSync)
	group.Get("/:id/archive", h.HandleListArchive)
	group.Get("/:id/archive/:version", h.HandleGetArchivedVersion)
}

// SyncRequest is the body of POST /characters/:id/sync.
type SyncRequest struct {
	BaseState map[string]any          `json:"base_state"`
	Changes   []reconcile.StateChange `json:"changes"`
}

// HandleCreateCharacter creates a character and its first version.
// @Summary Create Character
// @Description Create a character. Its data is recorded as version 1.
// @Tags characters
// @Accept json
// @Produce json
// @Param body body models.CreateCharacterRequest true "Character"
// @Success 201 {object} models.Character "Created"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Router /characters [post]
func (h *Handler) HandleCreateCharacter(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	var req models.CreateCharacterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, l, syncerr.Validation("invalid body: %v", err))
	}
	created, v, err := h.service.CreateCharacter(c.UserContext(), req)
	if err != nil {
		return h.fail(c, l, err)
	}
	c.Set("X-Character-Version", strconv.Itoa(v.Version))
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleGetCharacter returns the stored character.
// @Summary Get Character
// @Tags characters
// @Produce json
// @Param id path string true "Character ID"
// @Success 200 {object} models.Character "Character"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /characters/{id} [get]
func (h *Handler) HandleGetCharacter(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	ch, err := h.service.GetCharacter(c.UserContext(), id)
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(ch)
}

// HandleGetLatestVersion returns the newest retained version.
// @Summary Get Latest Version
// @Tags versions
// @Produce json
// @Param id path string true "Character ID"
// @Success 200 {object} versioning.StateVersion "Version"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /characters/{id}/versions [get]
func (h *Handler) HandleGetLatestVersion(c *fiber.Ctx) error {
	return h.getVersion(c, versioning.Latest)
}

// HandleGetVersion returns one retained version.
// @Summary Get Version
// @Tags versions
// @Produce json
// @Param id path string true "Character ID"
// @Param version path int true "Version number"
// @Success 200 {object} versioning.StateVersion "Version"
// @Failure 409 {object} models.ErrorResponse "Version not retained"
// @Router /characters/{id}/versions/{version} [get]
func (h *Handler) HandleGetVersion(c *fiber.Ctx) error {
	version, err := c.ParamsInt("version")
	if err != nil || version <= 0 {
		return h.fail(c, logger.WithRayID(h.logger, c), syncerr.Validation("version must be a positive integer"))
	}
	return h.getVersion(c, version)
}

func (h *Handler) getVersion(c *fiber.Ctx, version int) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	v, err := h.service.GetVersion(c.UserContext(), id, version)
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(v)
}

// HandleGetHistory returns the retained versions, oldest first.
// @Summary Get History
// @Tags versions
// @Produce json
// @Param id path string true "Character ID"
// @Success 200 {array} versioning.StateVersion "History"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Router /characters/{id}/history [get]
func (h *Handler) HandleGetHistory(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	history, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(history)
}

// HandleApplyChanges applies a partial document.
// @Summary Apply Changes
// @Description Deep-merge changes into the character. A stale base_version is merged when the edits do not overlap.
// @Tags versions
// @Accept json
// @Produce json
// @Param id path string true "Character ID"
// @Param body body models.ApplyChangesRequest true "Changes"
// @Success 200 {object} models.ApplyChangesResponse "Applied"
// @Failure 409 {object} models.ErrorResponse "Conflict"
// @Router /characters/{id}/changes [post]
func (h *Handler) HandleApplyChanges(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	var req models.ApplyChangesRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, l, syncerr.Validation("invalid body: %v", err))
	}

	v, hadConflict, err := h.service.ApplyChanges(c.UserContext(), id, req.Changes, req.BaseVersion)
	if err != nil {
		return h.fail(c, l, err)
	}
	if hadConflict {
		l.Info("Merged concurrent changes", zap.String("character_id", id.String()), zap.Int("version", v.Version))
	}
	return c.JSON(models.ApplyChangesResponse{Version: v.Version, HadConflict: hadConflict})
}

// HandleSync reconciles field-level changes against the live state.
// @Summary Sync Changes
// @Description Replay field changes; stale ones are skipped and reported.
// @Tags versions
// @Accept json
// @Produce json
// @Param id path string true "Character ID"
// @Param body body SyncRequest true "Changes"
// @Success 200 {object} SyncResult "Sync result"
// @Failure 409 {object} models.ErrorResponse "Conflict"
// @Router /characters/{id}/sync [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	var req SyncRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, l, syncerr.Validation("invalid body: %v", err))
	}

	result, err := h.service.Sync(c.UserContext(), id, req.BaseState, req.Changes)
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(result)
}

// HandleListArchive lists archived version numbers.
// @Summary List Archived Versions
// @Tags archive
// @Produce json
// @Param id path string true "Character ID"
// @Success 200 {array} int "Version numbers"
// @Router /characters/{id}/archive [get]
func (h *Handler) HandleListArchive(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	versions, err := h.service.ArchivedVersions(c.UserContext(), id)
	if err != nil {
		return h.fail(c, l, err)
	}
	if versions == nil {
		versions = []int{}
	}
	return c.JSON(versions)
}

// HandleGetArchivedVersion reads one archived version.
// @Summary Get Archived Version
// @Tags archive
// @Produce json
// @Param id path string true "Character ID"
// @Param version path int true "Version number"
// @Success 200 {object} versioning.StateVersion "Version"
// @Router /characters/{id}/archive/{version} [get]
func (h *Handler) HandleGetArchivedVersion(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	id, err := parseID(c)
	if err != nil {
		return h.fail(c, l, err)
	}
	version, err := c.ParamsInt("version")
	if err != nil || version <= 0 {
		return h.fail(c, l, syncerr.Validation("version must be a positive integer"))
	}
	v, err := h.service.ArchivedVersion(c.UserContext(), id, version)
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(v)
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, syncerr.Validation("invalid character id %q", c.Params("id"))
	}
	return id, nil
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case syncerr.IsNotFound(err):
		return fiber.StatusNotFound
	case syncerr.IsConflict(err):
		return fiber.StatusConflict
	case errors.Is(err, syncerr.ErrValidation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, err error) error {
	status := StatusFor(err)
	if status == fiber.StatusInternalServerError {
		l.Error("Character request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		l.Debug("Character request rejected", zap.Int("status", status), zap.Error(err))
	}

	resp := models.ErrorResponse{Error: err.Error(), Kind: string(syncerr.KindOf(err))}
	var se *syncerr.Error
	if errors.As(err, &se) {
		resp.EntityID = se.EntityID
	}
	return c.Status(status).JSON(resp)
}

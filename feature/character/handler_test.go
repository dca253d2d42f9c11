package character_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"character-sync/core/syncerr"
	"character-sync/core/versioning"
	"character-sync/feature/character"
	"character-sync/feature/character/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubArchive struct {
	versions []int
	stored   versioning.StateVersion
}

func (s *stubArchive) Versions(context.Context, uuid.UUID) ([]int, error) { return s.versions, nil }

func (s *stubArchive) Fetch(_ context.Context, id uuid.UUID, version int) (versioning.StateVersion, error) {
	if version != s.stored.Version {
		return versioning.StateVersion{}, syncerr.StateConflict(id.String(), "version %d is not archived", version)
	}
	return s.stored, nil
}

func newTestApp(t *testing.T, archive character.ArchiveReader) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, versioning.Config{MaxVersionHistory: 3}, archive)
	app := fiber.New()
	character.NewHandler(f.service, zap.NewNop()).RegisterRoutes(app)
	return app, f
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createCharacter(t *testing.T, app *fiber.App, data map[string]any) models.Character {
	t.Helper()
	resp, body := doJSON(t, app, "POST", "/characters", models.CreateCharacterRequest{Name: "Vex", CharacterData: data})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "1", resp.Header.Get("X-Character-Version"))
	var c models.Character
	require.NoError(t, json.Unmarshal(body, &c))
	return c
}

func TestHandler_CreateAndRead(t *testing.T) {
	app, _ := newTestApp(t, nil)
	c := createCharacter(t, app, map[string]any{"hp": 10})

	resp, body := doJSON(t, app, "GET", "/characters/"+c.ID.String(), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got models.Character
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Vex", got.Name)

	resp, body = doJSON(t, app, "GET", "/characters/"+c.ID.String()+"/versions", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var v versioning.StateVersion
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, float64(10), v.StateData["hp"])

	resp, _ = doJSON(t, app, "POST", "/characters", models.CreateCharacterRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandler_ApplyChanges(t *testing.T) {
	app, _ := newTestApp(t, nil)
	c := createCharacter(t, app, map[string]any{"a": 1, "b": 1})
	path := "/characters/" + c.ID.String()

	resp, body := doJSON(t, app, "POST", path+"/changes", models.ApplyChangesRequest{Changes: map[string]any{"a": 2}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var applied models.ApplyChangesResponse
	require.NoError(t, json.Unmarshal(body, &applied))
	assert.Equal(t, models.ApplyChangesResponse{Version: 2, HadConflict: false}, applied)

	resp, body = doJSON(t, app, "POST", path+"/changes", models.ApplyChangesRequest{Changes: map[string]any{"b": 2}, BaseVersion: intPtr(1)})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &applied))
	assert.Equal(t, models.ApplyChangesResponse{Version: 3, HadConflict: true}, applied)

	resp, body = doJSON(t, app, "POST", path+"/changes", models.ApplyChangesRequest{Changes: map[string]any{"a": 5}, BaseVersion: intPtr(1)})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "state_conflict", errResp.Kind)
	assert.Equal(t, c.ID.String(), errResp.EntityID)

	resp, body = doJSON(t, app, "GET", path+"/history", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history []versioning.StateVersion
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Len(t, history, 3)
}

func TestHandler_Errors(t *testing.T) {
	app, _ := newTestApp(t, nil)
	c := createCharacter(t, app, map[string]any{"hp": 1})
	missing := uuid.New().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"InvalidID", "GET", "/characters/not-a-uuid/versions", nil, fiber.StatusBadRequest},
		{"UnknownCharacter", "GET", "/characters/" + missing + "/history", nil, fiber.StatusNotFound},
		{"ApplyToUnknown", "POST", "/characters/" + missing + "/changes", models.ApplyChangesRequest{Changes: map[string]any{"a": 1}}, fiber.StatusNotFound},
		{"VersionNotRetained", "GET", "/characters/" + c.ID.String() + "/versions/9", nil, fiber.StatusConflict},
		{"BadVersion", "GET", "/characters/" + c.ID.String() + "/versions/zero", nil, fiber.StatusBadRequest},
		{"EmptyChanges", "POST", "/characters/" + c.ID.String() + "/changes", models.ApplyChangesRequest{}, fiber.StatusBadRequest},
		{"MalformedSyncPath", "POST", "/characters/" + c.ID.String() + "/sync", map[string]any{
			"changes": []map[string]any{{"field_path": "hp..max", "old_value": 1, "new_value": 2}},
		}, fiber.StatusBadRequest},
		{"ArchiveDisabled", "GET", "/characters/" + c.ID.String() + "/archive", nil, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestHandler_Sync(t *testing.T) {
	app, _ := newTestApp(t, nil)
	c := createCharacter(t, app, map[string]any{"hp": 10, "name": "Vex"})

	resp, body := doJSON(t, app, "POST", "/characters/"+c.ID.String()+"/sync", map[string]any{
		"base_state": map[string]any{"hp": 12, "name": "Vex"},
		"changes": []map[string]any{
			{"field_path": "hp", "old_value": 12, "new_value": 4, "timestamp": "2024-05-01T12:00:00Z"},
			{"field_path": "name", "old_value": "Vex", "new_value": "Vexa", "timestamp": "2024-05-01T12:00:01Z"},
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var result character.SyncResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 2, result.Version)
	assert.Len(t, result.Applied, 1)
	assert.Len(t, result.Skipped, 1)
}

func TestHandler_Archive(t *testing.T) {
	archive := &stubArchive{
		versions: []int{1, 2},
		stored:   versioning.StateVersion{Version: 2, StateData: map[string]any{"hp": 3.0}},
	}
	app, _ := newTestApp(t, archive)
	id := uuid.New().String()

	resp, body := doJSON(t, app, "GET", "/characters/"+id+"/archive", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[1,2]`, string(body))

	resp, body = doJSON(t, app, "GET", "/characters/"+id+"/archive/2", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var v versioning.StateVersion
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, 3.0, v.StateData["hp"])

	resp, _ = doJSON(t, app, "GET", "/characters/"+id+"/archive/7", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, character.StatusFor(syncerr.EntityNotFound("x")))
	assert.Equal(t, fiber.StatusConflict, character.StatusFor(syncerr.StateConflict("x", "stale")))
	assert.Equal(t, fiber.StatusBadRequest, character.StatusFor(syncerr.Validation("bad")))
	assert.Equal(t, fiber.StatusInternalServerError, character.StatusFor(io.ErrUnexpectedEOF))
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/handlers"
	"github.com/localnerve/puzzle-rooms/internal/middleware"
	"github.com/localnerve/puzzle-rooms/internal/models"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/localnerve/puzzle-rooms/internal/realtime"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fiber.App
	store   *services.Store
	objRoot string
}

// stubAuth stands in for the session-validating middleware in tests.
func stubAuth(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userId", userID)
		return c.Next()
	}
}

// setupTestEnv wires the room and piece routes against an in-memory SQLite
// database and a filesystem object store in a temp dir.
func setupTestEnv(t *testing.T, userID string) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")
	require.NoError(t, db.AutoMigrate(&models.Room{}, &models.Piece{}, &models.RoomMember{}))

	store := &services.Store{DB: db, Broker: realtime.NewMemoryBroker()}
	objRoot := t.TempDir()
	objects := storage.NewFSStore(objRoot, "http://localhost/uploads")

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Use(middleware.VersionMiddleware())

	roomHandler := &handlers.RoomHandler{Store: store, Objects: objects}
	pieceHandler := &handlers.PieceHandler{Store: store}

	auth := stubAuth(userID)
	app.Get("/api/rooms", roomHandler.ListRooms)
	app.Get("/api/rooms/:id", roomHandler.GetRoom)
	app.Get("/api/rooms/:id/pieces", pieceHandler.ListPieces)
	app.Post("/api/rooms", auth, roomHandler.CreateRoom)
	app.Post("/api/rooms/:id/join", auth, roomHandler.JoinRoom)
	app.Post("/api/rooms/:id/reset", auth, roomHandler.ResetRoom)
	app.Delete("/api/rooms/:id", auth, roomHandler.DeleteRoom)
	app.Post("/api/pieces/:id/move", auth, pieceHandler.MovePiece)

	return &testEnv{app: app, store: store, objRoot: objRoot}
}

// createRoomRequest builds a multipart room upload.
func createRoomRequest(t *testing.T, name, difficulty, filename, contentType string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if name != "" {
		require.NoError(t, w.WriteField("name", name))
	}
	if difficulty != "" {
		require.NoError(t, w.WriteField("difficulty", difficulty))
	}
	if filename != "" {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		h["Content-Type"] = []string{contentType}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/rooms", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestCreateRoom(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	resp, err := env.app.Test(createRoomRequest(t, "Beach Day", "hard", "beach.jpg", "image/jpeg"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeBody(t, resp)
	room, ok := result["room"].(map[string]interface{})
	require.True(t, ok, "response carries the room summary")
	assert.Equal(t, "Beach Day", room["name"])

	cfg := room["puzzleConfig"].(map[string]interface{})
	assert.Equal(t, "hard", cfg["difficulty"])
	assert.Equal(t, 6.0, cfg["rows"])
	assert.Equal(t, 8.0, cfg["cols"])

	// All 48 pieces exist and the image landed in the object store.
	pieces, err := env.store.ListPieces(t.Context(), room["id"].(string))
	require.NoError(t, err)
	assert.Len(t, pieces, 48)

	entries, err := os.ReadDir(filepath.Join(env.objRoot, "rooms", "owner-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreateRoomValidation(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing name", createRoomRequest(t, "", "easy", "a.png", "image/png")},
		{"missing file", createRoomRequest(t, "Room", "easy", "", "")},
		{"not an image", createRoomRequest(t, "Room", "easy", "notes.txt", "text/plain")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := env.app.Test(tc.req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			result := decodeBody(t, resp)
			assert.Equal(t, "validation", result["type"])
		})
	}

	// Nothing was written: rejected requests must have no side effects.
	rooms, err := env.store.ListRooms(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rooms)
	_, err = os.ReadDir(filepath.Join(env.objRoot, "rooms"))
	assert.True(t, os.IsNotExist(err), "no objects should be stored")
}

func TestCreateRoomCleansUpObjectOnStoreFailure(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	// Sabotage persistence after the upload step: without the pieces table
	// the room transaction rolls back, and the stored image must be removed.
	require.NoError(t, env.store.DB.Migrator().DropTable(&models.Piece{}))

	resp, err := env.app.Test(createRoomRequest(t, "Doomed", "easy", "a.png", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, "persistence", result["type"])

	var stored []string
	err = filepath.WalkDir(env.objRoot, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			stored = append(stored, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, stored, "the uploaded image must not outlive the failed room")
}

func TestCreateRoomUnknownDifficultyFallsBackToEasy(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	resp, err := env.app.Test(createRoomRequest(t, "Room", "brutal", "a.png", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	result := decodeBody(t, resp)
	cfg := result["room"].(map[string]interface{})["puzzleConfig"].(map[string]interface{})
	assert.Equal(t, "easy", cfg["difficulty"])
	assert.Equal(t, 3.0, cfg["rows"])
	assert.Equal(t, 4.0, cfg["cols"])
}

func TestGetRoomWithProgressAndMembers(t *testing.T) {
	env := setupTestEnv(t, "player-1")

	room, err := env.store.CreateRoom(t.Context(), "Room", "http://img", puzzle.GenerateConfig("easy"), "owner-1")
	require.NoError(t, err)
	_, err = env.store.JoinRoom(t.Context(), room.ID, "player-1")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/rooms/"+room.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, 0.0, result["progress"])
	assert.Equal(t, 1.0, result["memberCount"])
	assert.Equal(t, room.ID, result["room"].(map[string]interface{})["id"])
}

func TestGetRoomNotFound(t *testing.T) {
	env := setupTestEnv(t, "player-1")

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/rooms/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, "not_found", result["type"])
	assert.Equal(t, false, result["ok"])
}

func TestDeleteRoomRequiresOwner(t *testing.T) {
	env := setupTestEnv(t, "intruder")

	room, err := env.store.CreateRoom(t.Context(), "Room", "http://img", puzzle.GenerateConfig("easy"), "owner-1")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("DELETE", "/api/rooms/"+room.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	_, err = env.store.GetRoom(t.Context(), room.ID)
	assert.NoError(t, err, "denied delete must not remove the room")
}

func TestDeleteRoomByOwner(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	room, err := env.store.CreateRoom(t.Context(), "Room", "http://img", puzzle.GenerateConfig("easy"), "owner-1")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("DELETE", "/api/rooms/"+room.ID, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, true, result["ok"])
}

func TestResetRoomReportsAffectedRows(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	room, err := env.store.CreateRoom(t.Context(), "Room", "http://img", puzzle.GenerateConfig("medium"), "owner-1")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("POST", "/api/rooms/"+room.ID+"/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, 24.0, result["affectedRows"])
}

func TestJoinRoom(t *testing.T) {
	env := setupTestEnv(t, "player-1")

	room, err := env.store.CreateRoom(t.Context(), "Room", "http://img", puzzle.GenerateConfig("easy"), "owner-1")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("POST", "/api/rooms/"+room.ID+"/join", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	result := decodeBody(t, resp)
	assert.Equal(t, "player-1", result["userId"])
	assert.Equal(t, true, result["isActive"])
}

func TestListRooms(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	_, err := env.store.CreateRoom(t.Context(), "One", "http://img/1", puzzle.GenerateConfig("easy"), "owner-1")
	require.NoError(t, err)
	_, err = env.store.CreateRoom(t.Context(), "Two", "http://img/2", puzzle.GenerateConfig("hard"), "owner-2")
	require.NoError(t, err)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var rooms []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &rooms))
	assert.Len(t, rooms, 2)
}

func TestErrorResponsesEchoAPIVersion(t *testing.T) {
	env := setupTestEnv(t, "owner-1")

	req := httptest.NewRequest("GET", "/api/rooms/no-such-room", nil)
	req.Header.Set("X-Api-Version", "1")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "1.0.0", resp.Header.Get("X-Api-Version"),
		"version aliases normalize before they are echoed")
}

func TestMutationsRequireAuth(t *testing.T) {
	// Routes mounted without the auth middleware reject with 401.
	env := setupTestEnv(t, "owner-1")

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	roomHandler := &handlers.RoomHandler{Store: env.store, Objects: storage.NewFSStore(t.TempDir(), "http://localhost")}
	app.Post("/api/rooms", roomHandler.CreateRoom)

	resp, err := app.Test(createRoomRequest(t, "Room", "easy", "a.png", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

package services_test

import (
	"context"
	"testing"

	"github.com/localnerve/puzzle-rooms/internal/models"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/localnerve/puzzle-rooms/internal/realtime"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// setupTestStore creates a store backed by an in-memory SQLite database and
// an in-process broker.
func setupTestStore(t *testing.T) *services.Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")

	err = db.AutoMigrate(
		&models.Room{},
		&models.Piece{},
		&models.RoomMember{},
	)
	require.NoError(t, err, "Failed to migrate test database")

	return &services.Store{DB: db, Broker: realtime.NewMemoryBroker()}
}

func createTestRoom(t *testing.T, store *services.Store, difficulty, owner string) models.Room {
	room, err := store.CreateRoom(context.Background(), "Beach Day", "https://img.example/beach.jpg", puzzle.GenerateConfig(difficulty), owner)
	require.NoError(t, err)
	return room
}

func TestCreateRoomSeedsFullPieceSet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "medium", "owner-1")
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, "owner-1", room.CreatedBy)

	cfg, err := room.PuzzleConfig.Config()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Rows)
	assert.Equal(t, 6, cfg.Cols)

	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, pieces, 24)

	seen := make(map[int]bool)
	for _, p := range pieces {
		assert.False(t, seen[p.PieceIndex], "duplicate piece index %d", p.PieceIndex)
		seen[p.PieceIndex] = true

		tx, ty := puzzle.Target(p.PieceIndex, cfg.Cols)
		assert.Equal(t, tx, p.TargetX)
		assert.Equal(t, ty, p.TargetY)

		assert.False(t, p.IsPlaced)
		assert.GreaterOrEqual(t, p.CurrentX, puzzle.ScatterMinX)
		assert.LessOrEqual(t, p.CurrentX, puzzle.ScatterMaxX)
		assert.GreaterOrEqual(t, p.CurrentY, puzzle.ScatterMinY)
		assert.LessOrEqual(t, p.CurrentY, puzzle.ScatterMaxY)
	}
	for i := 0; i < 24; i++ {
		assert.True(t, seen[i], "missing piece index %d", i)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetRoom(context.Background(), "no-such-room")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestListRoomsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := createTestRoom(t, store, "easy", "owner-1")
	second := createTestRoom(t, store, "hard", "owner-2")

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	ids := []string{rooms[0].ID, rooms[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestMovePieceSnapsWithinTolerance(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")
	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)

	// Easy grid is 3x4; index 5 sits at column 1, row 1 -> target (150,150).
	target := pieces[5]
	assert.Equal(t, 150.0, target.TargetX)
	assert.Equal(t, 150.0, target.TargetY)

	// Distance from (162,166) to (150,150) is exactly 20, the boundary.
	moved, err := store.MovePiece(ctx, target.ID, "player-1", 162, 166)
	require.NoError(t, err)
	assert.True(t, moved.IsPlaced)
	assert.Equal(t, "player-1", moved.LastMovedBy)
	assert.Equal(t, 162.0, moved.CurrentX)
	assert.Equal(t, 166.0, moved.CurrentY)

	// Just beyond the boundary is not placed.
	moved, err = store.MovePiece(ctx, target.ID, "player-1", 150, 170.0001)
	require.NoError(t, err)
	assert.False(t, moved.IsPlaced)
}

func TestMovePieceLastWriterWins(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")
	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)
	pieceID := pieces[0].ID

	_, err = store.MovePiece(ctx, pieceID, "player-1", 200, 200)
	require.NoError(t, err)
	_, err = store.MovePiece(ctx, pieceID, "player-2", 300, 100)
	require.NoError(t, err)

	after, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, after[0].CurrentX)
	assert.Equal(t, 100.0, after[0].CurrentY)
	assert.Equal(t, "player-2", after[0].LastMovedBy)
}

func TestMovePieceNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.MovePiece(context.Background(), "no-such-piece", "player-1", 100, 100)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestResetRoomScattersEverything(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")
	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)

	// Place one piece first so the reset has something to undo.
	placed, err := store.MovePiece(ctx, pieces[0].ID, "player-1", pieces[0].TargetX, pieces[0].TargetY)
	require.NoError(t, err)
	require.True(t, placed.IsPlaced)

	affected, err := store.ResetRoom(ctx, room.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), affected)

	after, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)
	for _, p := range after {
		assert.False(t, p.IsPlaced)
		assert.Equal(t, "owner-1", p.LastMovedBy)
		assert.GreaterOrEqual(t, p.CurrentX, puzzle.ScatterMinX)
		assert.LessOrEqual(t, p.CurrentX, puzzle.ScatterMaxX)
		assert.GreaterOrEqual(t, p.CurrentY, puzzle.ScatterMinY)
		assert.LessOrEqual(t, p.CurrentY, puzzle.ScatterMaxY)
	}
}

func TestResetRoomNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.ResetRoom(context.Background(), "no-such-room", "owner-1")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestDeleteRoomOwnerOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")

	err := store.DeleteRoom(ctx, room.ID, "intruder")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUnauthorized))

	// Room and pieces survive the denied delete.
	_, err = store.GetRoom(ctx, room.ID)
	require.NoError(t, err)
}

func TestDeleteRoomCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")
	_, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err)

	require.NoError(t, store.DeleteRoom(ctx, room.ID, "owner-1"))

	_, err = store.GetRoom(ctx, room.ID)
	assert.True(t, types.IsKind(err, types.KindNotFound))

	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, pieces)

	members, err := store.ListActiveMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestJoinRoomIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")

	first, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err)
	assert.True(t, first.IsActive)

	second, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	members, err := store.ListActiveMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestJoinRoomSurvivesConcurrentFirstJoin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")

	// Simulate a competing join that committed first: the row already exists
	// when this join's insert lands on the unique index.
	rival := models.RoomMember{RoomID: room.ID, UserID: "player-1", IsActive: true}
	require.NoError(t, store.DB.Create(&rival).Error)

	member, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err, "losing the insert race must not surface as an error")
	assert.Equal(t, rival.ID, member.ID)
	assert.True(t, member.IsActive)

	members, err := store.ListActiveMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1, "the race must never duplicate the membership")
}

func TestJoinRoomReactivatesInactiveMember(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")

	member, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err)

	// Deactivate directly; no operation clears is_active on its own.
	err = store.DB.Model(&models.RoomMember{}).Where("id = ?", member.ID).Update("is_active", false).Error
	require.NoError(t, err)

	members, err := store.ListActiveMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	rejoined, err := store.JoinRoom(ctx, room.ID, "player-1")
	require.NoError(t, err)
	assert.Equal(t, member.ID, rejoined.ID)
	assert.True(t, rejoined.IsActive)

	members, err = store.ListActiveMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestJoinRoomNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.JoinRoom(context.Background(), "no-such-room", "player-1")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindNotFound))
}

func TestMoveEmitsPieceChange(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	room := createTestRoom(t, store, "easy", "owner-1")
	pieces, err := store.ListPieces(ctx, room.ID)
	require.NoError(t, err)

	ch, release := store.Broker.Subscribe(ctx, realtime.TablePieces, room.ID)
	defer release()

	_, err = store.MovePiece(ctx, pieces[0].ID, "player-1", 200, 200)
	require.NoError(t, err)

	select {
	case change := <-ch:
		assert.Equal(t, realtime.TablePieces, change.Table)
		assert.Equal(t, room.ID, change.RoomID)
	default:
		t.Fatal("expected a piece change notification")
	}
}

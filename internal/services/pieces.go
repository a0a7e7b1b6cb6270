package services

import (
	"context"
	"errors"
	"time"

	"github.com/localnerve/puzzle-rooms/internal/models"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/localnerve/puzzle-rooms/internal/realtime"
	"github.com/localnerve/puzzle-rooms/internal/types"
	"gorm.io/gorm"
)

// ListPieces returns the room's full piece set ordered by piece index.
func (s *Store) ListPieces(ctx context.Context, roomID string) ([]models.Piece, error) {
	var pieces []models.Piece
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("piece_index ASC").
		Find(&pieces).Error
	if err != nil {
		return nil, types.Persistence("Failed to list pieces", err)
	}
	return pieces, nil
}

// MovePiece applies one move: placement is recomputed against the piece's
// fixed target, then the row is overwritten unconditionally. Last writer
// wins — two users dragging the same piece race, and the later commit fully
// replaces the earlier one. No lock may be added here; that would change
// the observable semantics.
func (s *Store) MovePiece(ctx context.Context, pieceID, actorID string, x, y float64) (models.Piece, error) {
	var piece models.Piece
	err := s.DB.WithContext(ctx).Where("id = ?", pieceID).First(&piece).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Piece{}, types.NotFound("Piece not found")
		}
		return models.Piece{}, types.Persistence("Failed to load piece", err)
	}

	placed := puzzle.IsPlaced(x, y, piece.TargetX, piece.TargetY, puzzle.DefaultTolerance)
	now := time.Now().UTC()

	err = s.DB.WithContext(ctx).Model(&models.Piece{}).Where("id = ?", pieceID).
		Updates(map[string]interface{}{
			"current_x":     x,
			"current_y":     y,
			"is_placed":     placed,
			"last_moved_by": actorID,
			"updated_at":    now,
		}).Error
	if err != nil {
		return models.Piece{}, types.Persistence("Failed to move piece", err)
	}

	piece.CurrentX = x
	piece.CurrentY = y
	piece.IsPlaced = placed
	piece.LastMovedBy = actorID
	piece.UpdatedAt = now

	s.notify(ctx, realtime.TablePieces, piece.RoomID)
	return piece, nil
}

// rooms.go
//
// A real-time collaborative photo-jigsaw service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of puzzle-rooms.
// puzzle-rooms is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// puzzle-rooms is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with puzzle-rooms.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

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
	"gorm.io/gorm/clause"
)

// Store is the authoritative session state: the room, piece, and membership
// tables plus the operations that mutate them. Every mutation emits a
// room-scoped change notification through the broker.
type Store struct {
	DB     *gorm.DB
	Broker realtime.Broker
}

// notify publishes a payloadless change tag. Safe with a nil broker (tests
// that only exercise persistence).
func (s *Store) notify(ctx context.Context, table realtime.Table, roomID string) {
	if s.Broker != nil {
		s.Broker.Publish(ctx, realtime.Change{Table: table, RoomID: roomID})
	}
}

// CreateRoom allocates a room and its full piece set as one transaction.
// Either both the room and all rows*cols pieces exist afterwards, or
// nothing does — a room is never observable with zero pieces.
func (s *Store) CreateRoom(ctx context.Context, name, imageURL string, cfg puzzle.Config, ownerID string) (models.Room, error) {
	configJSON, err := models.NewConfigJSON(cfg)
	if err != nil {
		return models.Room{}, types.Persistence("Failed to encode puzzle config", err)
	}

	room := models.Room{
		Name:         name,
		ImageURL:     imageURL,
		PuzzleConfig: configJSON,
		CreatedBy:    ownerID,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		seeds := puzzle.GeneratePieces(cfg)
		pieces := make([]models.Piece, 0, len(seeds))
		for _, seed := range seeds {
			pieces = append(pieces, models.Piece{
				RoomID:      room.ID,
				PieceIndex:  seed.PieceIndex,
				CurrentX:    seed.CurrentX,
				CurrentY:    seed.CurrentY,
				TargetX:     seed.TargetX,
				TargetY:     seed.TargetY,
				IsPlaced:    seed.IsPlaced,
				Rotation:    seed.Rotation,
				LastMovedBy: "",
			})
		}

		return tx.Create(&pieces).Error
	})
	if err != nil {
		return models.Room{}, types.Persistence("Failed to create room", err)
	}

	s.notify(ctx, realtime.TableRooms, room.ID)
	s.notify(ctx, realtime.TablePieces, room.ID)

	return room, nil
}

// GetRoom fetches one room.
func (s *Store) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Room{}, types.NotFound("Room not found")
		}
		return models.Room{}, types.Persistence("Failed to load room", err)
	}
	return room, nil
}

// ListRooms returns all rooms, newest first.
func (s *Store) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, types.Persistence("Failed to list rooms", err)
	}
	return rooms, nil
}

// ResetRoom re-scatters every piece in the room in one batch: fresh random
// position inside the scatter bounds, placement cleared, rotation zeroed,
// last mover set to the actor. Unconditional once invoked; any confirmation
// belongs at the UI boundary.
func (s *Store) ResetRoom(ctx context.Context, roomID, actorID string) (int64, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return 0, err
	}

	var affected int64
	now := time.Now().UTC()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.Piece{}).Where("room_id = ?", roomID).Pluck("id", &ids).Error; err != nil {
			return err
		}

		for _, id := range ids {
			// Each piece gets its own scatter point, same as at generation.
			x, y := puzzle.Scatter()
			result := tx.Model(&models.Piece{}).Where("id = ?", id).Updates(map[string]interface{}{
				"current_x":     x,
				"current_y":     y,
				"is_placed":     false,
				"rotation":      0.0,
				"last_moved_by": actorID,
				"updated_at":    now,
			})
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, types.Persistence("Failed to reset room", err)
	}

	s.notify(ctx, realtime.TablePieces, roomID)
	return affected, nil
}

// DeleteRoom removes a room and cascades to its pieces and memberships.
// Only the room owner may delete; the check lives here, not in callers.
func (s *Store) DeleteRoom(ctx context.Context, roomID, actorID string) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != actorID {
		return types.Unauthorized("Only the room owner can delete the room")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Piece{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		return types.Persistence("Failed to delete room", err)
	}

	s.notify(ctx, realtime.TableRooms, roomID)
	return nil
}

// JoinRoom upserts the caller's membership with is_active=true. Idempotent
// under concurrency: two first-time joins for the same (room, user) resolve
// through the unique index, never as an error.
func (s *Store) JoinRoom(ctx context.Context, roomID, userID string) (models.RoomMember, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return models.RoomMember{}, err
	}

	member := models.RoomMember{RoomID: roomID, UserID: userID, IsActive: true}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true}),
		}).Create(&member).Error
		if err != nil {
			return err
		}
		// Re-read so a rejoin returns the surviving row, not the discarded
		// insert candidate.
		return tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
	})
	if err != nil {
		return models.RoomMember{}, types.Persistence("Failed to join room", err)
	}

	s.notify(ctx, realtime.TableMembers, roomID)
	return member, nil
}

// ListActiveMembers returns the room's active membership rows. Rows may be
// stale: leaving a room does not clear is_active.
func (s *Store) ListActiveMembers(ctx context.Context, roomID string) ([]models.RoomMember, error) {
	var members []models.RoomMember
	err := s.DB.WithContext(ctx).
		Where("room_id = ? AND is_active = ?", roomID, true).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, types.Persistence("Failed to list members", err)
	}
	return members, nil
}

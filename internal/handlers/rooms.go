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

package handlers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/localnerve/puzzle-rooms/internal/storage"
	"github.com/localnerve/puzzle-rooms/internal/types"
	"github.com/localnerve/puzzle-rooms/internal/utils"
	"github.com/sirupsen/logrus"
)

// RoomHandler handles the room lifecycle routes
type RoomHandler struct {
	Store   *services.Store
	Objects storage.ObjectStore
}

// CreateRoom handles POST /api/rooms
// @Summary Create a puzzle room
// @Description Upload an image and seed a collaborative puzzle room from it
// @Tags Rooms
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source image"
// @Param name formData string true "Room display name"
// @Param difficulty formData string false "easy, medium or hard"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /rooms [post]
func (h *RoomHandler) CreateRoom(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	// All validation happens before any storage or database work.
	name := strings.TrimSpace(c.FormValue("name"))
	difficulty := c.FormValue("difficulty")

	file, err := c.FormFile("file")
	if err != nil || name == "" {
		return types.Validation("Missing file or room name")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return types.Validation("File must be an image")
	}

	src, err := file.Open()
	if err != nil {
		return types.Validation("Unreadable image payload")
	}
	defer src.Close()

	key := fmt.Sprintf("rooms/%s/%d%s", userID, time.Now().UnixMilli(), strings.ToLower(filepath.Ext(file.Filename)))

	imageURL, err := h.Objects.Put(c.Context(), key, contentType, src)
	if err != nil {
		return types.Storage("Failed to store image", err)
	}

	cfg := puzzle.GenerateConfig(difficulty)

	room, err := h.Store.CreateRoom(c.Context(), name, imageURL, cfg, userID)
	if err != nil {
		// The room transaction rolled back; clean up the orphaned object.
		if delErr := h.Objects.Delete(c.Context(), key); delErr != nil {
			logrus.WithError(delErr).WithField("key", key).Warn("orphaned image cleanup failed")
		}
		return err
	}

	return utils.SuccessResponse(c, fiber.Map{
		"ok":   true,
		"room": summarizeRoom(room),
	}, fiber.StatusCreated)
}

// ListRooms handles GET /api/rooms
// @Summary List puzzle rooms
// @Tags Rooms
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /rooms [get]
func (h *RoomHandler) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.Store.ListRooms(c.Context())
	if err != nil {
		return err
	}

	summaries := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, summarizeRoom(room))
	}

	return utils.SuccessResponse(c, summaries, fiber.StatusOK)
}

// GetRoom handles GET /api/rooms/:id
// @Summary Get one room with progress and member count
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")

	room, err := h.Store.GetRoom(c.Context(), roomID)
	if err != nil {
		return err
	}
	pieces, err := h.Store.ListPieces(c.Context(), roomID)
	if err != nil {
		return err
	}
	members, err := h.Store.ListActiveMembers(c.Context(), roomID)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, fiber.Map{
		"room":        summarizeRoom(room),
		"progress":    puzzle.Progress(pieces),
		"memberCount": len(members),
	}, fiber.StatusOK)
}

// JoinRoom handles POST /api/rooms/:id/join
// @Summary Join a room as an active member
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/join [post]
func (h *RoomHandler) JoinRoom(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	member, err := h.Store.JoinRoom(c.Context(), c.Params("id"), userID)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, member, fiber.StatusOK)
}

// ResetRoom handles POST /api/rooms/:id/reset
// @Summary Re-scatter every piece in the room
// @Description Unconditional once invoked; the confirmation prompt is a client concern
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /rooms/{id}/reset [post]
func (h *RoomHandler) ResetRoom(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	affected, err := h.Store.ResetRoom(c.Context(), c.Params("id"), userID)
	if err != nil {
		return err
	}

	return utils.MutationSuccessResponse(c, affected)
}

// DeleteRoom handles DELETE /api/rooms/:id
// @Summary Delete a room and all of its pieces and memberships
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /rooms/{id} [delete]
func (h *RoomHandler) DeleteRoom(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	room, err := h.Store.GetRoom(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	if err := h.Store.DeleteRoom(c.Context(), room.ID, userID); err != nil {
		return err
	}

	// Rows are gone; losing the image object only leaks storage.
	if err := h.Objects.DeleteByURL(c.Context(), room.ImageURL); err != nil {
		logrus.WithError(err).WithField("roomId", room.ID).Warn("room image cleanup failed")
	}

	return utils.MutationSuccessResponse(c, 1)
}

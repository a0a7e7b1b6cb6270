// common.go
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
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/middleware"
	"github.com/localnerve/puzzle-rooms/internal/models"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/localnerve/puzzle-rooms/internal/types"
)

// ErrorHandler maps errors to the JSON error envelope. Wired as the app's
// fiber ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var custom *types.CustomError
	if errors.As(err, &custom) {
		code = custom.Code
		message = custom.Message
		errorType = custom.Type
	} else if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	c.Set("X-Api-Version", middleware.APIVersion(c))
	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// requireUser returns the authenticated caller's id or an unauthorized
// error. The auth middleware normally guarantees this; the check keeps
// the handlers safe when composed without it.
func requireUser(c *fiber.Ctx) (string, error) {
	userID := middleware.UserID(c)
	if userID == "" {
		return "", types.Unauthorized("Authentication required")
	}
	return userID, nil
}

// roomSummary is the created/fetched room payload shared by the room routes.
type roomSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ImageURL     string        `json:"imageUrl"`
	PuzzleConfig puzzle.Config `json:"puzzleConfig"`
}

// summarizeRoom flattens a room row into its API summary. Rooms with an
// undecodable config column fall back to the easy grid rather than erroring
// a read path.
func summarizeRoom(room models.Room) roomSummary {
	cfg, err := room.PuzzleConfig.Config()
	if err != nil {
		cfg = puzzle.GenerateConfig(puzzle.DifficultyEasy)
	}
	return roomSummary{
		ID:           room.ID,
		Name:         room.Name,
		ImageURL:     room.ImageURL,
		PuzzleConfig: cfg,
	}
}

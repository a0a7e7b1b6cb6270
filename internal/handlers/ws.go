// ws.go
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
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/puzzle-rooms/internal/realtime"
	"github.com/localnerve/puzzle-rooms/internal/services"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades room connections to websockets and keeps each
// connected player synchronized with the room state.
type WSHandler struct {
	Store  *services.Store
	Broker realtime.Broker
}

type wsInbound struct {
	Type    string  `json:"type"`
	PieceID string  `json:"pieceId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type wsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Upgrade gates the route to websocket upgrade requests.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve handles GET /api/rooms/:id/ws after the upgrade.
//
// Every state change in the room triggers a full snapshot push. Inbound
// frames are limited to move commands; each one is persisted immediately
// so other members see the drag in flight, not just the drop.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		roomID := conn.Params("id")
		userID, _ := conn.Locals("userId").(string)

		log := logrus.WithFields(logrus.Fields{
			"roomId": roomID,
			"userId": userID,
		})

		var writeMu sync.Mutex
		push := func(snap realtime.Snapshot) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(fiber.Map{"type": "snapshot", "data": snap}); err != nil {
				log.WithError(err).Debug("snapshot push failed")
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		client := realtime.NewClient(h.Store, h.Broker, roomID, userID, push)
		if err := client.Start(ctx); err != nil {
			writeMu.Lock()
			_ = conn.WriteJSON(wsError{Type: "error", Message: err.Error()})
			writeMu.Unlock()
			return
		}
		defer client.Stop()

		for {
			var in wsInbound
			if err := conn.ReadJSON(&in); err != nil {
				log.WithError(err).Debug("websocket closed")
				return
			}

			if in.Type != "move" {
				continue
			}

			if _, err := client.Move(ctx, in.PieceID, in.X, in.Y); err != nil {
				writeMu.Lock()
				_ = conn.WriteJSON(wsError{Type: "error", Message: err.Error()})
				writeMu.Unlock()
			}
		}
	})
}

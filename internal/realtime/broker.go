// broker.go
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

// Package realtime carries room-scoped change notifications from the session
// store to connected clients. Notifications are payloadless tags; subscribers
// re-query the store rather than applying deltas.
package realtime

import (
	"context"
	"sync"
)

// Table identifies which room collection changed.
type Table string

const (
	TableRooms   Table = "rooms"
	TablePieces  Table = "puzzle_pieces"
	TableMembers Table = "room_members"
)

// Change tags a room-scoped mutation. It says only "something in this
// room's table changed" — never which row, never in what order.
type Change struct {
	Table  Table  `json:"table"`
	RoomID string `json:"roomId"`
}

// Broker fans out changes to subscribers. Delivery is at-least-once and
// unordered across pieces; subscribers must treat every delivery as a
// re-pull signal.
type Broker interface {
	Publish(ctx context.Context, change Change)
	// Subscribe returns a channel of changes for (table, roomID) and a
	// release function that must be called when done.
	Subscribe(ctx context.Context, table Table, roomID string) (<-chan Change, func())
}

type subKey struct {
	table  Table
	roomID string
}

// MemoryBroker is the in-process Broker used for single-instance
// deployments and tests.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[subKey]map[chan Change]struct{}
}

// NewMemoryBroker creates an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[subKey]map[chan Change]struct{})}
}

// Publish delivers the change to every subscriber of its (table, room).
// When a subscriber's buffer is full the delivery is coalesced: a queued
// notification already forces a full re-pull.
func (b *MemoryBroker) Publish(ctx context.Context, change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[subKey{change.Table, change.RoomID}] {
		select {
		case ch <- change:
		default:
		}
	}
}

// Subscribe registers a buffered subscription for (table, roomID).
func (b *MemoryBroker) Subscribe(ctx context.Context, table Table, roomID string) (<-chan Change, func()) {
	key := subKey{table, roomID}
	ch := make(chan Change, 16)

	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan Change]struct{})
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()

	release := func() {
		b.mu.Lock()
		if set, ok := b.subs[key]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(b.subs, key)
			}
		}
		b.mu.Unlock()
	}

	return ch, release
}

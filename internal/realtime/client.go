// client.go
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

package realtime

import (
	"context"
	"sync"

	"github.com/localnerve/puzzle-rooms/internal/models"
	"github.com/localnerve/puzzle-rooms/internal/puzzle"
	"github.com/sirupsen/logrus"
)

// RoomSource is the slice of the session store a sync client needs.
// Satisfied by *services.Store.
type RoomSource interface {
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListPieces(ctx context.Context, roomID string) ([]models.Piece, error)
	ListActiveMembers(ctx context.Context, roomID string) ([]models.RoomMember, error)
	JoinRoom(ctx context.Context, roomID, userID string) (models.RoomMember, error)
	MovePiece(ctx context.Context, pieceID, actorID string, x, y float64) (models.Piece, error)
}

// Snapshot is one consistent client view of a room.
type Snapshot struct {
	Room     models.Room         `json:"room"`
	Pieces   []models.Piece      `json:"pieces"`
	Members  []models.RoomMember `json:"members"`
	Progress float64             `json:"progress"`
}

// Client is one connected user's view of one room. It joins the room, pulls
// the full state, then re-pulls the whole affected collection on every
// change notification. It never applies a notification as a delta.
type Client struct {
	src    RoomSource
	broker Broker
	roomID string
	userID string

	// onUpdate, when set, receives every new snapshot. Called from the
	// client's own goroutine, one call at a time.
	onUpdate func(Snapshot)

	mu   sync.RWMutex
	snap Snapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient builds a sync client for one user in one room.
func NewClient(src RoomSource, broker Broker, roomID, userID string, onUpdate func(Snapshot)) *Client {
	return &Client{
		src:      src,
		broker:   broker,
		roomID:   roomID,
		userID:   userID,
		onUpdate: onUpdate,
	}
}

// Start joins the room, loads the initial snapshot, and begins listening for
// piece and membership changes. The initial load is fatal on error; later
// re-fetch failures only log and keep the previous known-good snapshot.
func (c *Client) Start(ctx context.Context) error {
	if _, err := c.src.JoinRoom(ctx, c.roomID, c.userID); err != nil {
		return err
	}

	room, err := c.src.GetRoom(ctx, c.roomID)
	if err != nil {
		return err
	}
	pieces, err := c.src.ListPieces(ctx, c.roomID)
	if err != nil {
		return err
	}
	members, err := c.src.ListActiveMembers(ctx, c.roomID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = Snapshot{Room: room, Pieces: pieces, Members: members, Progress: puzzle.Progress(pieces)}
	snap := c.snap
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	pieceCh, releasePieces := c.broker.Subscribe(runCtx, TablePieces, c.roomID)
	memberCh, releaseMembers := c.broker.Subscribe(runCtx, TableMembers, c.roomID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer releasePieces()
		defer releaseMembers()
		// Delivered here rather than on the caller's goroutine so the
		// initial push cannot overlap a change-driven one.
		if c.onUpdate != nil {
			c.onUpdate(snap)
		}
		c.loop(runCtx, pieceCh, memberCh)
	}()
	return nil
}

func (c *Client) loop(ctx context.Context, pieceCh, memberCh <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-pieceCh:
			if !ok {
				return
			}
			c.refreshPieces(ctx)
		case _, ok := <-memberCh:
			if !ok {
				return
			}
			c.refreshMembers(ctx)
		}
	}
}

// refreshPieces re-fetches the full piece list and recomputes progress.
func (c *Client) refreshPieces(ctx context.Context) {
	pieces, err := c.src.ListPieces(ctx, c.roomID)
	if err != nil {
		// Stale-but-available beats a crash; keep showing the last good state.
		logrus.WithError(err).WithField("room", c.roomID).Warn("sync: piece refresh failed")
		return
	}

	c.mu.Lock()
	c.snap.Pieces = pieces
	c.snap.Progress = puzzle.Progress(pieces)
	snap := c.snap
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

// refreshMembers re-fetches the full active membership list.
func (c *Client) refreshMembers(ctx context.Context) {
	members, err := c.src.ListActiveMembers(ctx, c.roomID)
	if err != nil {
		logrus.WithError(err).WithField("room", c.roomID).Warn("sync: member refresh failed")
		return
	}

	c.mu.Lock()
	c.snap.Members = members
	snap := c.snap
	c.mu.Unlock()

	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

// Move forwards one drag frame to the store. Called on every intermediate
// frame of a drag, not just on release, so remote viewers see motion.
func (c *Client) Move(ctx context.Context, pieceID string, x, y float64) (models.Piece, error) {
	return c.src.MovePiece(ctx, pieceID, c.userID, x, y)
}

// Snapshot returns the latest consistent view.
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Stop releases the subscriptions. Membership is deliberately left active;
// presence cleanup is not guaranteed.
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

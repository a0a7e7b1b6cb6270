package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroker fans change notifications out over Redis pub/sub so multiple
// service instances share one notification plane. Same contract as the
// in-process broker: at-least-once, unordered, payloadless tags.
type RedisBroker struct {
	rdb *redis.Client
}

// NewRedisBroker connects a broker to the given Redis address.
func NewRedisBroker(addr, password string, db int) *RedisBroker {
	return &RedisBroker{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies the Redis connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close releases the underlying Redis client.
func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}

func channelName(table Table, roomID string) string {
	return fmt.Sprintf("puzzle:%s:%s", table, roomID)
}

// Publish sends the change on its room channel. Publish failures are logged
// and dropped; the client re-pull loop self-heals on the next change.
func (b *RedisBroker) Publish(ctx context.Context, change Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		logrus.WithError(err).Error("realtime: marshal change")
		return
	}
	if err := b.rdb.Publish(ctx, channelName(change.Table, change.RoomID), payload).Err(); err != nil {
		logrus.WithError(err).WithField("room", change.RoomID).Warn("realtime: publish failed")
	}
}

// Subscribe opens a Redis subscription for (table, roomID) and bridges it to
// a Change channel.
func (b *RedisBroker) Subscribe(ctx context.Context, table Table, roomID string) (<-chan Change, func()) {
	pubsub := b.rdb.Subscribe(ctx, channelName(table, roomID))
	out := make(chan Change, 16)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logrus.WithError(err).Warn("realtime: bad change payload")
				continue
			}
			select {
			case out <- change:
			default:
				// Coalesce: a queued notification already forces a re-pull.
			}
		}
	}()

	release := func() {
		_ = pubsub.Close()
	}

	return out, release
}

// Package history pushes finished-game summaries onto a Redis list so an
// external consumer can persist or analyze them. The core never reads them
// back; losing the queue costs nothing but history.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/whatthetune/blindtest/internal/game"
)

// DefaultQueueName is the Redis list finished games are pushed to.
const DefaultQueueName = "tune_games"

// Recorder publishes game summaries. A nil *Recorder is a no-op, so callers
// can wire it unconditionally.
type Recorder struct {
	rdb   *redis.Client
	queue string
	log   *logrus.Logger
}

// Connect builds a Recorder against the given Redis address and pings it.
func Connect(addr, queue string, logger *logrus.Logger) (*Recorder, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("history: failed to connect to Redis at %s: %w", addr, err)
	}
	return &Recorder{rdb: rdb, queue: queue, log: logger}, nil
}

// Record serializes the summary and RPushes it onto the queue. Errors are
// logged, not propagated: the game outcome was already broadcast.
func (r *Recorder) Record(summary game.GameSummary) {
	if r == nil || r.rdb == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		r.log.WithError(err).Error("failed to marshal game summary")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.rdb.RPush(ctx, r.queue, data).Err(); err != nil {
		r.log.WithError(err).WithField("room", summary.RoomCode).Warn("failed to push game summary")
	}
}

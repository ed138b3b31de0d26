package game

import (
	"sync"

	"github.com/google/uuid"
)

// defaultConnBuffer is the per-channel outbound backlog. A channel whose
// backlog is full has its delivery marked failed; the room then detaches the
// player rather than letting one slow client backpressure the whole room.
const defaultConnBuffer = 32

// Conn is one player's attached channel. The room's command loop is the only
// writer; the transport (WebSocket write pump, or a test) is the only reader.
type Conn struct {
	PlayerID uuid.UUID

	out       chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn builds a channel for playerID with the default backlog.
func NewConn(playerID uuid.UUID) *Conn {
	return &Conn{
		PlayerID: playerID,
		out:      make(chan Event, defaultConnBuffer),
		done:     make(chan struct{}),
	}
}

// Send enqueues an event without blocking. It reports false when the channel
// is closed or its backlog is exceeded; the caller treats that as a failed
// delivery and detaches the player.
func (c *Conn) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- ev:
		return true
	default:
		return false
	}
}

// Events is the outbound stream consumed by the transport's write pump.
func (c *Conn) Events() <-chan Event {
	return c.out
}

// Done is closed when the channel is no longer usable.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close marks the channel dead. Safe to call from any goroutine, repeatedly.
// The out channel itself is never closed so a concurrent Send cannot panic.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

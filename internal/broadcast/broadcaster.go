// Package broadcast fans change records out to every connected session.
// Delivery is best-effort: publish never blocks the mutating call, and
// a session that is disconnected (or too slow to drain its buffer)
// recovers through its own periodic full refresh.
package broadcast

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
)

const DefaultBufferSize = 64

type Broadcaster struct {
	logger zerolog.Logger
	buffer int

	mu   sync.RWMutex
	subs map[string]chan models.Change
}

func New(logger zerolog.Logger, buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &Broadcaster{
		logger: logger,
		buffer: buffer,
		subs:   make(map[string]chan models.Change),
	}
}

// Subscribe registers a session and returns its outbound channel. The
// channel is closed by Unsubscribe; an existing subscription under the
// same session id is replaced.
func (b *Broadcaster) Subscribe(sessionID string) <-chan models.Change {
	ch := make(chan models.Change, b.buffer)

	b.mu.Lock()
	if old, ok := b.subs[sessionID]; ok {
		close(old)
	}
	b.subs[sessionID] = ch
	b.mu.Unlock()

	b.logger.Debug().
		Str("session_id", sessionID).
		Msg("session subscribed")
	return ch
}

func (b *Broadcaster) Unsubscribe(sessionID string) {
	b.mu.Lock()
	ch, ok := b.subs[sessionID]
	if ok {
		delete(b.subs, sessionID)
		close(ch)
	}
	b.mu.Unlock()

	if ok {
		b.logger.Debug().
			Str("session_id", sessionID).
			Msg("session unsubscribed")
	}
}

// Publish delivers the change to every subscribed session and returns
// immediately. Records are handed to each session's channel in call
// order, so per-task ordering mirrors the caller's commit order. No
// per-recipient permission filtering happens here: every session gets
// every record and filters client-side.
func (b *Broadcaster) Publish(change models.Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sessionID, ch := range b.subs {
		select {
		case ch <- change:
		default:
			// Slow consumer with a full buffer: drop the record for
			// this session and let its periodic refresh catch it up.
			b.logger.Warn().
				Str("session_id", sessionID).
				Str("kind", change.Kind).
				Msg("subscriber buffer full, dropped change")
		}
	}
}

// Subscribers reports how many sessions are currently connected.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

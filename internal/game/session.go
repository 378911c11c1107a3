// internal/game/session.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultOutboxSize is the number of undelivered messages a session buffers before dropping.
const DefaultOutboxSize = 16

// Session is one connected client. Messages pushed with Send are delivered by
// whatever transport drains Outbox (the websocket writer in production).
type Session struct {
	ID   uuid.UUID
	Name string

	mu     sync.Mutex
	out    chan any
	closed bool
}

func NewSession(name string) *Session {
	return &Session{
		ID:   uuid.New(),
		Name: name,
		out:  make(chan any, DefaultOutboxSize),
	}
}

// Send queues v for delivery. It never blocks: a full or closed outbox drops
// the message and returns false.
func (s *Session) Send(v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- v:
		return true
	default:
		return false
	}
}

// Outbox is drained by the session's writer.
func (s *Session) Outbox() <-chan any {
	return s.out
}

// Close stops further delivery. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

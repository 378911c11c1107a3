// internal/game/lobby.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// RoomFactory seats two sessions in a new room. first is the player who was
// waiting and takes seat 1.
type RoomFactory[R Room] func(first, second *Session) R

// Lobby pairs arriving sessions two at a time. At most one session waits; the
// next arrival is matched with it and a room is created.
type Lobby[R Room] struct {
	mu      sync.Mutex
	waiting *Session
	rooms   *RoomStore[R]
	newRoom RoomFactory[R]
}

func NewLobby[R Room](factory RoomFactory[R]) *Lobby[R] {
	return &Lobby[R]{
		rooms:   NewRoomStore[R](),
		newRoom: factory,
	}
}

// Connect either parks s in the waiting slot (and tells it so) or pairs it
// with the waiting session. matched reports whether a room was created.
func (l *Lobby[R]) Connect(s *Session) (room R, matched bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.waiting == nil || l.waiting.ID == s.ID {
		l.waiting = s
		s.Send(Event{Type: EventWaiting})
		return room, false
	}

	first := l.waiting
	l.waiting = nil
	room = l.newRoom(first, s)
	l.rooms.Insert(room)
	return room, true
}

// Disconnect forgets a session. If it was waiting the slot is cleared; if it
// was seated its room is removed and returned so the caller can notify the
// other player.
func (l *Lobby[R]) Disconnect(sessionID uuid.UUID) (room R, ok bool) {
	l.mu.Lock()
	if l.waiting != nil && l.waiting.ID == sessionID {
		l.waiting = nil
		l.mu.Unlock()
		return room, false
	}
	l.mu.Unlock()

	room, ok = l.rooms.Lookup(sessionID)
	if !ok {
		return room, false
	}
	return l.rooms.Remove(room.RoomID())
}

// Close discards a finished room.
func (l *Lobby[R]) Close(roomID uuid.UUID) {
	l.rooms.Remove(roomID)
}

// Lookup finds the room a session is seated in.
func (l *Lobby[R]) Lookup(sessionID uuid.UUID) (R, bool) {
	return l.rooms.Lookup(sessionID)
}

func (l *Lobby[R]) Rooms() *RoomStore[R] {
	return l.rooms
}

// Waiting reports the id of the session currently waiting for an opponent.
func (l *Lobby[R]) Waiting() (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting == nil {
		return uuid.Nil, false
	}
	return l.waiting.ID, true
}

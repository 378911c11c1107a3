// internal/game/room_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Room is anything the lobby can pair players into.
type Room interface {
	RoomID() uuid.UUID
	Members() []*Session
}

// RoomStore tracks live rooms by id and by the sessions seated in them.
type RoomStore[R Room] struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]R
	bySession map[uuid.UUID]uuid.UUID
}

func NewRoomStore[R Room]() *RoomStore[R] {
	return &RoomStore[R]{
		rooms:     make(map[uuid.UUID]R),
		bySession: make(map[uuid.UUID]uuid.UUID),
	}
}

// Insert registers r and indexes each of its members.
func (s *RoomStore[R]) Insert(r R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.RoomID()] = r
	for _, m := range r.Members() {
		s.bySession[m.ID] = r.RoomID()
	}
}

func (s *RoomStore[R]) Get(id uuid.UUID) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Lookup returns the room a session is seated in.
func (s *RoomStore[R]) Lookup(sessionID uuid.UUID) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		var zero R
		return zero, false
	}
	r, ok := s.rooms[id]
	return r, ok
}

// Remove drops the room and its session index entries, returning the removed room.
func (s *RoomStore[R]) Remove(id uuid.UUID) (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return r, false
	}
	delete(s.rooms, id)
	for _, m := range r.Members() {
		if s.bySession[m.ID] == id {
			delete(s.bySession, m.ID)
		}
	}
	return r, true
}

// Unindex forgets one session of a room. The room itself is dropped once
// none of its members is indexed; dropped reports whether that happened.
func (s *RoomStore[R]) Unindex(sessionID uuid.UUID) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return false
	}
	delete(s.bySession, sessionID)
	r, ok := s.rooms[id]
	if !ok {
		return false
	}
	for _, m := range r.Members() {
		if s.bySession[m.ID] == id {
			return false
		}
	}
	delete(s.rooms, id)
	return true
}

func (s *RoomStore[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// List returns a snapshot of the live rooms.
func (s *RoomStore[R]) List() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]R, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// internal/game/lobby_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoom struct {
	id      uuid.UUID
	members []*Session
}

func (r *testRoom) RoomID() uuid.UUID   { return r.id }
func (r *testRoom) Members() []*Session { return r.members }

func newTestLobby() *Lobby[*testRoom] {
	return NewLobby(func(first, second *Session) *testRoom {
		return &testRoom{id: uuid.New(), members: []*Session{first, second}}
	})
}

func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case v := <-s.Outbox():
			out = append(out, v.(Event))
		default:
			return out
		}
	}
}

func TestLobbyPairsTwoSessions(t *testing.T) {
	l := newTestLobby()
	a, b := NewSession("alice"), NewSession("bob")

	_, matched := l.Connect(a)
	assert.False(t, matched)
	events := drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, EventWaiting, events[0].Type)

	room, matched := l.Connect(b)
	require.True(t, matched)
	assert.Equal(t, a, room.members[0], "waiting session takes seat 1")
	assert.Equal(t, b, room.members[1])
	assert.Equal(t, 1, l.Rooms().Len())

	found, ok := l.Lookup(b.ID)
	require.True(t, ok)
	assert.Equal(t, room.RoomID(), found.RoomID())

	_, waiting := l.Waiting()
	assert.False(t, waiting)
}

func TestLobbyThirdConnectWaits(t *testing.T) {
	l := newTestLobby()
	l.Connect(NewSession("a"))
	l.Connect(NewSession("b"))

	c := NewSession("c")
	_, matched := l.Connect(c)
	assert.False(t, matched)
	id, waiting := l.Waiting()
	require.True(t, waiting)
	assert.Equal(t, c.ID, id)
}

func TestLobbyDisconnect(t *testing.T) {
	l := newTestLobby()
	a := NewSession("a")
	l.Connect(a)
	_, ok := l.Disconnect(a.ID)
	assert.False(t, ok, "waiting session has no room")
	_, waiting := l.Waiting()
	assert.False(t, waiting)

	b, c := NewSession("b"), NewSession("c")
	l.Connect(b)
	room, _ := l.Connect(c)

	removed, ok := l.Disconnect(c.ID)
	require.True(t, ok)
	assert.Equal(t, room.RoomID(), removed.RoomID())
	assert.Equal(t, 0, l.Rooms().Len())
	_, ok = l.Lookup(b.ID)
	assert.False(t, ok)
}

func TestLobbyConcurrentConnects(t *testing.T) {
	l := newTestLobby()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Connect(NewSession("p"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 25, l.Rooms().Len())
	for _, r := range l.Rooms().List() {
		assert.Len(t, r.members, 2)
		assert.NotEqual(t, r.members[0].ID, r.members[1].ID)
	}
}

func TestRoomStoreUnindex(t *testing.T) {
	store := NewRoomStore[*testRoom]()
	a, b := NewSession("a"), NewSession("b")
	room := &testRoom{id: uuid.New(), members: []*Session{a, b}}
	store.Insert(room)

	assert.False(t, store.Unindex(a.ID))
	_, ok := store.Lookup(a.ID)
	assert.False(t, ok)
	got, ok := store.Lookup(b.ID)
	require.True(t, ok)
	assert.Equal(t, room.id, got.id)

	assert.False(t, store.Unindex(a.ID), "already forgotten")
	assert.True(t, store.Unindex(b.ID))
	assert.Equal(t, 0, store.Len())
}

func TestSessionSendNeverBlocks(t *testing.T) {
	s := NewSession("x")
	for i := 0; i < DefaultOutboxSize; i++ {
		assert.True(t, s.Send(i))
	}
	assert.False(t, s.Send("overflow"))
	s.Close()
	s.Close()
	assert.False(t, s.Send("closed"))
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"play","cards":["AH"]}`))
	require.NoError(t, err)
	assert.Equal(t, "play", msg.Type)

	var body struct {
		Cards []string `json:"cards"`
	}
	require.NoError(t, msg.Decode(&body))
	assert.Equal(t, []string{"AH"}, body.Cards)

	_, err = ParseMessage([]byte(`{"cards":[]}`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = ParseMessage([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalid)
}

type captureRecorder struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (c *captureRecorder) RecordAction(_ context.Context, rec cache.GameActionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *captureRecorder) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

func TestActionLogNumbersActions(t *testing.T) {
	rec := &captureRecorder{}
	roomID := uuid.New()
	log := NewActionLog("cardduel", roomID, rec, nil)
	actor := NewSession("alice")

	log.Log(actor, "play", map[string]any{"cards": []string{"AH"}})
	log.Log(actor, "discard", nil)
	assert.Equal(t, 2, log.Count())

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, r := range rec.records {
		assert.Equal(t, "cardduel", r.Game)
		assert.Equal(t, roomID, r.RoomID)
		assert.Equal(t, "alice", r.ActorName)
		assert.NotNil(t, r.ActionPayload)
	}
}

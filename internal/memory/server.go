// internal/memory/server.go
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
)

// Server runs paired memory matches.
type Server struct {
	Lobby    *game.Lobby[*Room]
	Board    leaderboard.Store
	Recorder game.Recorder
	Logger   *logrus.Logger
	// RevealDelay is how long the second card stays up before the pair resolves.
	// Zero resolves immediately.
	RevealDelay time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewServer(logger *logrus.Logger, board leaderboard.Store, rec game.Recorder, delay time.Duration, rng *rand.Rand) *Server {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if rec == nil {
		rec = game.NopRecorder{}
	}
	if delay < 0 {
		delay = 0
	}
	s := &Server{
		Board:       board,
		Recorder:    rec,
		Logger:      logger,
		RevealDelay: delay,
		rng:         rng,
	}
	s.Lobby = game.NewLobby(func(first, second *game.Session) *Room {
		r := &Room{ID: uuid.New(), Seats: [2]*game.Session{first, second}}
		r.actions = game.NewActionLog(GameName, r.ID, s.Recorder, s.Logger)
		r.deal(s.boardRand())
		return r
	})
	return s
}

func (s *Server) boardRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

func (s *Server) Connect(sess *game.Session) {
	room, matched := s.Lobby.Connect(sess)
	if !matched {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	for i, m := range room.Seats {
		st := room.state()
		st.Seat = i + 1
		m.Send(game.Event{Type: game.EventMatched, RoomID: room.ID.String(), Seat: i + 1, Payload: st})
	}
	room.actions.Log(nil, "match", map[string]any{"p1": room.Seats[0].Name, "p2": room.Seats[1].Name})
}

func (s *Server) Disconnect(sessionID uuid.UUID) {
	room, ok := s.Lobby.Disconnect(sessionID)
	if !ok {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.timer != nil {
		room.timer.Stop()
	}
	room.generation++
	for _, m := range room.Seats {
		if m.ID != sessionID {
			m.Send(game.Event{Type: game.EventOpponentLeft, RoomID: room.ID.String()})
		}
	}
}

// Flip turns a hidden card face up. The second flip of a turn schedules the
// pair's resolution after RevealDelay.
func (s *Server) Flip(ctx context.Context, sessionID uuid.UUID, pos int) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}

	room.Mu.Lock()
	if room.Status != InProgress {
		room.Mu.Unlock()
		return State{}, game.ErrGameOver
	}
	seat := room.seatOf(sessionID)
	if seat != room.Current {
		room.Mu.Unlock()
		return State{}, game.ErrNotYourTurn
	}
	if pos < 0 || pos >= len(room.Cards) {
		room.Mu.Unlock()
		return State{}, game.Invalidf("no card at position %d", pos)
	}
	if len(room.revealed) >= 2 {
		room.Mu.Unlock()
		return State{}, game.Invalidf("wait for the revealed pair to settle")
	}
	card := room.Cards[pos]
	if card.Status != Hidden {
		room.Mu.Unlock()
		return State{}, game.Invalidf("card %d is already %s", pos, card.Status)
	}

	card.Status = Revealed
	room.revealed = append(room.revealed, pos)
	room.actions.Log(room.Seats[seat-1], "flip", map[string]any{"position": pos, "symbol": card.Symbol})
	room.broadcast(game.Event{Type: EventFlip, RoomID: room.ID.String(), Seat: seat, Payload: room.state()})

	var results []leaderboard.Result
	if len(room.revealed) == 2 {
		if s.RevealDelay == 0 {
			results = s.settle(room)
		} else {
			gen := room.generation
			room.timer = time.AfterFunc(s.RevealDelay, func() { s.settleLater(room, gen) })
		}
	}
	st := room.state()
	st.Seat = seat
	room.Mu.Unlock()

	s.record(ctx, results)
	return st, nil
}

func (s *Server) settleLater(room *Room, gen int) {
	room.Mu.Lock()
	if room.generation != gen {
		room.Mu.Unlock()
		return
	}
	room.timer = nil
	results := s.settle(room)
	room.Mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.record(ctx, results)
}

// settle resolves the revealed pair and broadcasts the outcome. Caller holds Mu.
func (s *Server) settle(room *Room) []leaderboard.Result {
	done := room.resolve()
	room.broadcast(game.Event{Type: EventResolved, RoomID: room.ID.String(), Payload: room.state()})
	if !done {
		return nil
	}

	room.broadcast(game.Event{
		Type:    game.EventGameOver,
		RoomID:  room.ID.String(),
		Payload: map[string]any{"winner": room.Winner, "scores": room.Scores},
	})
	room.actions.Log(nil, "game_over", map[string]any{"winner": room.Winner})
	s.Logger.WithFields(logrus.Fields{"game": GameName, "room": room.ID, "winner": room.Winner}).Info("memory match finished")

	out := make([]leaderboard.Result, 2)
	for i, m := range room.Seats {
		o := leaderboard.OutcomeDraw
		if room.Winner == i+1 {
			o = leaderboard.OutcomeWin
		} else if room.Winner != 0 {
			o = leaderboard.OutcomeLoss
		}
		out[i] = leaderboard.Result{Game: GameName, Name: m.Name, Score: room.Scores[i], Outcome: o}
	}
	return out
}

func (s *Server) record(ctx context.Context, results []leaderboard.Result) {
	if s.Board == nil {
		return
	}
	for _, r := range results {
		if err := s.Board.Record(ctx, r); err != nil {
			s.Logger.WithFields(logrus.Fields{"game": GameName, "player": r.Name}).Warnf("failed to record leaderboard result: %v", err)
		}
	}
}

// Reset deals a new board for the same two players.
func (s *Server) Reset(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.deal(s.boardRand())
	room.actions.Log(room.Seats[room.seatOf(sessionID)-1], "reset", nil)
	room.broadcast(game.Event{Type: EventReset, RoomID: room.ID.String(), Payload: room.state()})
	st := room.state()
	st.Seat = room.seatOf(sessionID)
	return st, nil
}

func (s *Server) State(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	st := room.state()
	st.Seat = room.seatOf(sessionID)
	return st, nil
}

type flipRequest struct {
	Position *int `json:"position"`
}

func (s *Server) HandleMessage(ctx context.Context, sessionID uuid.UUID, msg game.Message) (any, error) {
	switch msg.Type {
	case "flip":
		var req flipRequest
		if err := msg.Decode(&req); err != nil {
			return nil, err
		}
		if req.Position == nil {
			return nil, game.Invalidf("position is required")
		}
		return s.Flip(ctx, sessionID, *req.Position)
	case "reset":
		return s.Reset(sessionID)
	case "state":
		return s.State(sessionID)
	}
	return nil, game.UnknownAction(msg.Type)
}

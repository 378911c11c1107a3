// internal/connect4/server.go
package connect4

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
)

const GameName = "connect4"

const EventMove game.EventType = "move"

// Room is a paired game. Seat 1 plays disc 1.
type Room struct {
	ID    uuid.UUID
	Seats [2]*game.Session

	Mu      sync.Mutex
	Game    *Game
	Closed  bool
	actions *game.ActionLog
}

func (r *Room) RoomID() uuid.UUID        { return r.ID }
func (r *Room) Members() []*game.Session { return r.Seats[:] }

func (r *Room) seatOf(sessionID uuid.UUID) int {
	for i, s := range r.Seats {
		if s.ID == sessionID {
			return i + 1
		}
	}
	return 0
}

func (r *Room) broadcast(ev game.Event) {
	for _, s := range r.Seats {
		s.Send(ev)
	}
}

// Server hosts the shared hot-seat board and the paired rooms.
type Server struct {
	Lobby    *game.Lobby[*Room]
	Board    leaderboard.Store
	Recorder game.Recorder
	Logger   *logrus.Logger

	localMu sync.Mutex
	local   *Game
}

func NewServer(logger *logrus.Logger, board leaderboard.Store, rec game.Recorder) *Server {
	if rec == nil {
		rec = game.NopRecorder{}
	}
	s := &Server{
		Board:    board,
		Recorder: rec,
		Logger:   logger,
		local:    NewGame(),
	}
	s.Lobby = game.NewLobby(func(first, second *game.Session) *Room {
		r := &Room{ID: uuid.New(), Seats: [2]*game.Session{first, second}, Game: NewGame()}
		r.actions = game.NewActionLog(GameName, r.ID, s.Recorder, s.Logger)
		return r
	})
	return s
}

// LocalState returns the hot-seat board.
func (s *Server) LocalState() State {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	return s.local.State()
}

// LocalMove drops a disc for whoever's turn it is on the hot-seat board.
func (s *Server) LocalMove(col int) (State, error) {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	if _, err := s.local.Drop(col); err != nil {
		return State{}, err
	}
	return s.local.State(), nil
}

func (s *Server) LocalReset() State {
	s.localMu.Lock()
	defer s.localMu.Unlock()
	s.local.Reset()
	return s.local.State()
}

// Connect pairs sess or parks it until an opponent arrives.
func (s *Server) Connect(sess *game.Session) {
	room, matched := s.Lobby.Connect(sess)
	if !matched {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	st := room.Game.State()
	for i, m := range room.Seats {
		m.Send(game.Event{Type: game.EventMatched, RoomID: room.ID.String(), Seat: i + 1, Payload: st})
	}
	room.actions.Log(nil, "match", map[string]any{"p1": room.Seats[0].Name, "p2": room.Seats[1].Name})
	s.Logger.WithFields(logrus.Fields{"game": GameName, "room": room.ID}).Info("connect4 room started")
}

// Disconnect closes the session's room and tells the opponent.
func (s *Server) Disconnect(sessionID uuid.UUID) {
	room, ok := s.Lobby.Disconnect(sessionID)
	if !ok {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.Closed = true
	for _, m := range room.Seats {
		if m.ID != sessionID {
			m.Send(game.Event{Type: game.EventOpponentLeft, RoomID: room.ID.String()})
		}
	}
}

// MoveResult describes an accepted move.
type MoveResult struct {
	Row    int   `json:"row"`
	Column int   `json:"column"`
	Player int   `json:"player"`
	State  State `json:"state"`
}

// Move drops the caller's disc. The caller's seat must be the current player.
func (s *Server) Move(ctx context.Context, sessionID uuid.UUID, col int) (MoveResult, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return MoveResult{}, game.ErrNotFound
	}

	room.Mu.Lock()
	if room.Game.Over {
		room.Mu.Unlock()
		return MoveResult{}, game.ErrGameOver
	}
	seat := room.seatOf(sessionID)
	if seat != room.Game.Current {
		room.Mu.Unlock()
		return MoveResult{}, game.ErrNotYourTurn
	}
	row, err := room.Game.Drop(col)
	if err != nil {
		room.Mu.Unlock()
		return MoveResult{}, err
	}
	res := MoveResult{Row: row, Column: col, Player: seat, State: room.Game.State()}
	room.broadcast(game.Event{Type: EventMove, RoomID: room.ID.String(), Seat: seat, Payload: res})
	room.actions.Log(room.Seats[seat-1], "move", map[string]any{"column": col, "row": row})

	var results []leaderboard.Result
	if room.Game.Over {
		room.broadcast(game.Event{
			Type:    game.EventGameOver,
			RoomID:  room.ID.String(),
			Payload: map[string]any{"winner": room.Game.Winner, "draw": room.Game.Winner == 0},
		})
		results = outcomes(room)
	}
	room.Mu.Unlock()

	s.record(ctx, results)
	return res, nil
}

// outcomes maps the finished board to leaderboard rows. Caller holds Mu.
func outcomes(room *Room) []leaderboard.Result {
	out := make([]leaderboard.Result, 2)
	for i, m := range room.Seats {
		o := leaderboard.OutcomeDraw
		switch room.Game.Winner {
		case 0:
		case i + 1:
			o = leaderboard.OutcomeWin
		default:
			o = leaderboard.OutcomeLoss
		}
		out[i] = leaderboard.Result{Game: GameName, Name: m.Name, Outcome: o}
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

// Rematch clears a finished board for the same two players.
func (s *Server) Rematch(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if !room.Game.Over {
		return State{}, game.Invalidf("game is still in progress")
	}
	room.Game.Reset()
	st := room.Game.State()
	room.broadcast(game.Event{Type: game.EventMatched, RoomID: room.ID.String(), Payload: st})
	room.actions.Log(room.Seats[room.seatOf(sessionID)-1], "rematch", nil)
	return st, nil
}

// State returns the caller's room board.
func (s *Server) State(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.Game.State(), nil
}

type moveRequest struct {
	Column *int `json:"column"`
}

// HandleMessage routes actions. Requests without a session act on the
// hot-seat board.
func (s *Server) HandleMessage(ctx context.Context, sessionID uuid.UUID, msg game.Message) (any, error) {
	local := sessionID == uuid.Nil
	switch msg.Type {
	case "move":
		var req moveRequest
		if err := msg.Decode(&req); err != nil {
			return nil, err
		}
		if req.Column == nil {
			return nil, game.Invalidf("column is required")
		}
		if local {
			return s.LocalMove(*req.Column)
		}
		return s.Move(ctx, sessionID, *req.Column)
	case "state":
		if local {
			return s.LocalState(), nil
		}
		return s.State(sessionID)
	case "reset":
		if local {
			return s.LocalReset(), nil
		}
		return s.Rematch(sessionID)
	case "rematch":
		if local {
			return s.LocalReset(), nil
		}
		return s.Rematch(sessionID)
	}
	return nil, game.UnknownAction(msg.Type)
}

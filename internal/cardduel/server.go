// internal/cardduel/server.go
package cardduel

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/cards"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/hand"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
)

// Server pairs players into duels and applies their actions.
type Server struct {
	Lobby    *game.Lobby[*Room]
	Board    leaderboard.Store
	Recorder game.Recorder
	Logger   *logrus.Logger
	Rounds   int

	// ended keeps finished rooms reachable so late actions get ErrGameOver
	// instead of ErrNotFound. A room goes away once both players disconnect.
	ended *game.RoomStore[*Room]

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewServer builds a duel server. A nil rng is seeded from the clock.
func NewServer(logger *logrus.Logger, board leaderboard.Store, rec game.Recorder, rounds int, rng *rand.Rand) *Server {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if rec == nil {
		rec = game.NopRecorder{}
	}
	s := &Server{
		Board:    board,
		Recorder: rec,
		Logger:   logger,
		Rounds:   rounds,
		ended:    game.NewRoomStore[*Room](),
		rng:      rng,
	}
	s.Lobby = game.NewLobby(s.createRoom)
	return s
}

func (s *Server) deckRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

func (s *Server) createRoom(first, second *game.Session) *Room {
	r := newRoom(first, second, s.Rounds, s.deckRand)
	r.actions = game.NewActionLog(GameName, r.ID, s.Recorder, s.Logger)
	return r
}

// Connect pairs sess with a waiting player, or parks it.
func (s *Server) Connect(sess *game.Session) {
	room, matched := s.Lobby.Connect(sess)
	if !matched {
		s.Logger.WithFields(logrus.Fields{"game": GameName, "session": sess.ID}).Info("player waiting for opponent")
		return
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	for seat := 1; seat <= 2; seat++ {
		st := room.stateFor(seat)
		room.player(seat).Session.Send(game.Event{
			Type:    game.EventMatched,
			RoomID:  room.ID.String(),
			Seat:    seat,
			Payload: st,
		})
	}
	room.actions.Log(nil, "match", map[string]any{
		"p1": room.Players[0].Session.Name,
		"p2": room.Players[1].Session.Name,
	})
	s.Logger.WithFields(logrus.Fields{"game": GameName, "room": room.ID}).Info("duel started")
}

// Disconnect removes sess and tells its opponent.
func (s *Server) Disconnect(sessionID uuid.UUID) {
	if _, ok := s.ended.Lookup(sessionID); ok {
		s.ended.Unindex(sessionID)
		return
	}
	room, ok := s.Lobby.Disconnect(sessionID)
	if !ok {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.Finished = true
	seat := room.seatOf(sessionID)
	if seat == 0 {
		return
	}
	room.opponent(seat).Session.Send(game.Event{Type: game.EventOpponentLeft, RoomID: room.ID.String()})
	room.actions.Log(room.player(seat).Session, "leave", nil)
}

// find returns the room and seat for a session.
func (s *Server) find(sessionID uuid.UUID) (*Room, error) {
	if r, ok := s.Lobby.Lookup(sessionID); ok {
		return r, nil
	}
	if _, ok := s.ended.Lookup(sessionID); ok {
		return nil, game.ErrGameOver
	}
	return nil, game.ErrNotFound
}

// PlayResult is returned to the player who played.
type PlayResult struct {
	Received    []string `json:"received"`
	Score       int      `json:"score"`
	HandPlayed  string   `json:"hand_played"`
	ValidCards  []string `json:"valid_cards"`
	Description string   `json:"description,omitempty"`
	CurrentTurn int      `json:"current_turn"`
	Round       int      `json:"round"`
	Finished    bool     `json:"finished"`
}

// Play scores a selection from the player's hand and passes the turn.
func (s *Server) Play(ctx context.Context, sessionID uuid.UUID, codes []string) (PlayResult, error) {
	room, err := s.find(sessionID)
	if err != nil {
		return PlayResult{}, err
	}

	room.Mu.Lock()
	if room.Finished {
		room.Mu.Unlock()
		return PlayResult{}, game.ErrGameOver
	}
	seat := room.seatOf(sessionID)
	if seat != room.CurrentSeat {
		room.Mu.Unlock()
		return PlayResult{}, game.ErrNotYourTurn
	}
	selected, err := room.selection(seat, codes)
	if err != nil {
		room.Mu.Unlock()
		return PlayResult{}, err
	}
	eval, err := hand.Evaluate(selected)
	if err != nil {
		room.Mu.Unlock()
		return PlayResult{}, game.Invalidf("%v", err)
	}

	me := room.player(seat)
	me.Total += eval.Score
	me.LastScore = eval.Score
	me.LastHand = eval.Category.String()
	for _, c := range selected {
		me.Deck.Hand().Remove(c)
	}
	room.actions.Log(me.Session, "play", map[string]any{
		"cards": cards.Codes(selected),
		"hand":  eval.Category.String(),
		"score": eval.Score,
	})

	if seat == 2 {
		room.Round++
	}
	if seat == 2 && room.Round >= room.Rounds {
		room.Finished = true
	} else {
		room.CurrentSeat = 3 - seat
		room.broadcast(game.Event{
			Type:    EventUpdateTurn,
			RoomID:  room.ID.String(),
			Payload: map[string]any{"current_turn": room.CurrentSeat, "round": room.Round},
		})
	}

	res := PlayResult{
		Received:    codes,
		Score:       eval.Score,
		HandPlayed:  eval.Category.String(),
		ValidCards:  cards.Codes(eval.Contributing),
		Description: eval.Description,
		CurrentTurn: room.CurrentSeat,
		Round:       room.Round,
		Finished:    room.Finished,
	}
	var results []leaderboard.Result
	if room.Finished {
		results = s.finish(room)
	}
	room.Mu.Unlock()

	if results != nil {
		s.ended.Insert(room)
		s.Lobby.Close(room.ID)
		s.recordResults(ctx, results)
	}
	return res, nil
}

// finish sends game_over to both seats and returns the leaderboard rows. Caller holds Mu.
func (s *Server) finish(room *Room) []leaderboard.Result {
	p1, p2 := room.Players[0], room.Players[1]
	win1, win2 := WinDraw, WinDraw
	out1, out2 := leaderboard.OutcomeDraw, leaderboard.OutcomeDraw
	switch {
	case p1.Total > p2.Total:
		win1, win2 = WinWon, WinLoss
		out1, out2 = leaderboard.OutcomeWin, leaderboard.OutcomeLoss
	case p2.Total > p1.Total:
		win1, win2 = WinLoss, WinWon
		out1, out2 = leaderboard.OutcomeLoss, leaderboard.OutcomeWin
	}
	p1.Session.Send(game.Event{Type: game.EventGameOver, RoomID: room.ID.String(), Seat: 1, Payload: map[string]any{"score": p1.Total, "win": win1}})
	p2.Session.Send(game.Event{Type: game.EventGameOver, RoomID: room.ID.String(), Seat: 2, Payload: map[string]any{"score": p2.Total, "win": win2}})
	room.actions.Log(nil, "game_over", map[string]any{"p1": p1.Total, "p2": p2.Total})

	s.Logger.WithFields(logrus.Fields{
		"game": GameName,
		"room": room.ID,
		"p1":   p1.Total,
		"p2":   p2.Total,
	}).Info("duel finished")

	return []leaderboard.Result{
		{Game: GameName, Name: p1.Session.Name, Score: p1.Total, Outcome: out1},
		{Game: GameName, Name: p2.Session.Name, Score: p2.Total, Outcome: out2},
	}
}

func (s *Server) recordResults(ctx context.Context, results []leaderboard.Result) {
	if s.Board == nil {
		return
	}
	for _, r := range results {
		if err := s.Board.Record(ctx, r); err != nil {
			s.Logger.WithFields(logrus.Fields{"game": GameName, "player": r.Name}).Warnf("failed to record leaderboard result: %v", err)
		}
	}
}

// Discard drops cards from the player's hand without scoring. It is not turn-gated.
func (s *Server) Discard(sessionID uuid.UUID, codes []string) ([]string, error) {
	room, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Finished {
		return nil, game.ErrGameOver
	}
	seat := room.seatOf(sessionID)
	selected, err := room.selection(seat, codes)
	if err != nil {
		return nil, err
	}
	me := room.player(seat)
	for _, c := range selected {
		me.Deck.Hand().Remove(c)
	}
	room.actions.Log(me.Session, "discard", map[string]any{"cards": cards.Codes(selected)})
	return cards.Codes(selected), nil
}

// Draw tops the player's hand back up to eight cards.
func (s *Server) Draw(sessionID uuid.UUID) ([]cards.Card, error) {
	room, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Finished {
		return nil, game.ErrGameOver
	}
	me := room.player(room.seatOf(sessionID))
	drawn := me.Deck.Fill()
	if drawn == nil {
		drawn = []cards.Card{}
	}
	room.actions.Log(me.Session, "draw", map[string]any{"count": len(drawn)})
	return drawn, nil
}

// State returns the caller's view of their duel.
func (s *Server) State(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		room, ok = s.ended.Lookup(sessionID)
	}
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.stateFor(room.seatOf(sessionID)), nil
}

type cardsRequest struct {
	Cards []string `json:"cards"`
}

// HandleMessage routes a client action to the matching operation.
func (s *Server) HandleMessage(ctx context.Context, sessionID uuid.UUID, msg game.Message) (any, error) {
	switch msg.Type {
	case "play":
		var req cardsRequest
		if err := msg.Decode(&req); err != nil {
			return nil, err
		}
		return s.Play(ctx, sessionID, req.Cards)
	case "discard":
		var req cardsRequest
		if err := msg.Decode(&req); err != nil {
			return nil, err
		}
		discarded, err := s.Discard(sessionID, req.Cards)
		if err != nil {
			return nil, err
		}
		return map[string]any{"received": discarded}, nil
	case "draw":
		drawn, err := s.Draw(sessionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"drawn_cards": drawn}, nil
	case "state":
		return s.State(sessionID)
	}
	return nil, game.UnknownAction(msg.Type)
}

// internal/picas/server.go
package picas

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
)

const GameName = "picas"

// Scoring.
const (
	StartingScore  = 500
	GuessCost      = 18
	FirstTryBonus  = 1000
	SecondTryBonus = 500
)

const (
	EventReady    game.EventType = "ready"
	EventOpponent game.EventType = "opponent_guess"
)

// Attempt is one judged guess.
type Attempt struct {
	Guess string `json:"guess"`
	Picas int    `json:"picas"`
	Fijas int    `json:"fijas"`
}

type player struct {
	session *game.Session
	secret  string
	score   int
	history []Attempt
}

// Room is one guessing duel. Mu guards everything below it.
type Room struct {
	ID uuid.UUID

	Mu       sync.Mutex
	players  [2]*player
	Finished bool
	Winner   int
	actions  *game.ActionLog
}

func (r *Room) RoomID() uuid.UUID { return r.ID }

func (r *Room) Members() []*game.Session {
	return []*game.Session{r.players[0].session, r.players[1].session}
}

func (r *Room) seatOf(sessionID uuid.UUID) int {
	for i, p := range r.players {
		if p.session.ID == sessionID {
			return i + 1
		}
	}
	return 0
}

func (r *Room) ready() bool {
	return r.players[0].secret != "" && r.players[1].secret != ""
}

func (r *Room) started() bool {
	return len(r.players[0].history)+len(r.players[1].history) > 0
}

// State is one seat's view of the duel.
type State struct {
	Seat             int       `json:"seat"`
	SecretSet        bool      `json:"secret_set"`
	OpponentReady    bool      `json:"opponent_ready"`
	Finished         bool      `json:"finished"`
	Winner           int       `json:"winner"`
	Scores           [2]int    `json:"scores"`
	History          []Attempt `json:"history"`
	OpponentAttempts int       `json:"opponent_attempts"`
}

func (r *Room) stateFor(seat int) State {
	me, opp := r.players[seat-1], r.players[2-seat]
	history := make([]Attempt, len(me.history))
	copy(history, me.history)
	return State{
		Seat:             seat,
		SecretSet:        me.secret != "",
		OpponentReady:    opp.secret != "",
		Finished:         r.Finished,
		Winner:           r.Winner,
		Scores:           [2]int{r.players[0].score, r.players[1].score},
		History:          history,
		OpponentAttempts: len(opp.history),
	}
}

// Server runs paired guessing duels.
type Server struct {
	Lobby    *game.Lobby[*Room]
	Board    leaderboard.Store
	Recorder game.Recorder
	Logger   *logrus.Logger
}

func NewServer(logger *logrus.Logger, board leaderboard.Store, rec game.Recorder) *Server {
	if rec == nil {
		rec = game.NopRecorder{}
	}
	s := &Server{Board: board, Recorder: rec, Logger: logger}
	s.Lobby = game.NewLobby(func(first, second *game.Session) *Room {
		r := &Room{ID: uuid.New()}
		r.players[0] = &player{session: first}
		r.players[1] = &player{session: second}
		r.actions = game.NewActionLog(GameName, r.ID, s.Recorder, s.Logger)
		return r
	})
	return s
}

func (s *Server) Connect(sess *game.Session) {
	room, matched := s.Lobby.Connect(sess)
	if !matched {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	for seat := 1; seat <= 2; seat++ {
		room.players[seat-1].session.Send(game.Event{
			Type:    game.EventMatched,
			RoomID:  room.ID.String(),
			Seat:    seat,
			Payload: room.stateFor(seat),
		})
	}
}

func (s *Server) Disconnect(sessionID uuid.UUID) {
	room, ok := s.Lobby.Disconnect(sessionID)
	if !ok {
		return
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	seat := room.seatOf(sessionID)
	if seat == 0 {
		return
	}
	room.players[2-seat].session.Send(game.Event{Type: game.EventOpponentLeft, RoomID: room.ID.String()})
}

// SetSecret registers the caller's secret number and starts their score at
// StartingScore. It may be changed until the first guess is made.
func (s *Server) SetSecret(sessionID uuid.UUID, secret string) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	if err := ValidateNumber(secret); err != nil {
		return State{}, err
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Finished {
		return State{}, game.ErrGameOver
	}
	if room.started() {
		return State{}, game.Invalidf("secrets are locked once guessing starts")
	}
	seat := room.seatOf(sessionID)
	me := room.players[seat-1]
	if me.secret == "" {
		me.score = StartingScore
	}
	me.secret = secret
	room.actions.Log(me.session, "secret", nil)

	if room.ready() {
		for i, p := range room.players {
			p.session.Send(game.Event{Type: EventReady, RoomID: room.ID.String(), Seat: i + 1})
		}
	}
	return room.stateFor(seat), nil
}

// GuessResult is the judged guess plus the guesser's running score.
type GuessResult struct {
	Attempt
	AttemptNumber int  `json:"attempt"`
	Score         int  `json:"score"`
	Won           bool `json:"won"`
}

// Guess judges a guess against the opponent's secret. Players guess at their
// own pace; the first to hit all five digits wins.
func (s *Server) Guess(ctx context.Context, sessionID uuid.UUID, guess string) (GuessResult, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return GuessResult{}, game.ErrNotFound
	}

	room.Mu.Lock()
	if room.Finished {
		room.Mu.Unlock()
		return GuessResult{}, game.ErrGameOver
	}
	if !room.ready() {
		room.Mu.Unlock()
		return GuessResult{}, game.Invalidf("both players must set a secret first")
	}
	seat := room.seatOf(sessionID)
	me, opp := room.players[seat-1], room.players[2-seat]
	picas, fijas, err := Judge(opp.secret, guess)
	if err != nil {
		room.Mu.Unlock()
		return GuessResult{}, err
	}

	attempt := Attempt{Guess: guess, Picas: picas, Fijas: fijas}
	me.history = append(me.history, attempt)
	n := len(me.history)
	me.score -= GuessCost
	won := fijas == Digits
	if won {
		switch n {
		case 1:
			me.score += FirstTryBonus
		case 2:
			me.score += SecondTryBonus
		}
		room.Finished = true
		room.Winner = seat
	}
	room.actions.Log(me.session, "guess", map[string]any{"guess": guess, "picas": picas, "fijas": fijas})
	opp.session.Send(game.Event{Type: EventOpponent, RoomID: room.ID.String(), Seat: seat, Payload: attempt})

	var results []leaderboard.Result
	if won {
		for i, p := range room.players {
			p.session.Send(game.Event{
				Type:    game.EventGameOver,
				RoomID:  room.ID.String(),
				Seat:    i + 1,
				Payload: map[string]any{"winner": seat, "scores": [2]int{room.players[0].score, room.players[1].score}, "secret": opp.secret},
			})
		}
		results = []leaderboard.Result{
			{Game: GameName, Name: me.session.Name, Score: me.score, Outcome: leaderboard.OutcomeWin},
			{Game: GameName, Name: opp.session.Name, Score: opp.score, Outcome: leaderboard.OutcomeLoss},
		}
		s.Logger.WithFields(logrus.Fields{"game": GameName, "room": room.ID, "winner": me.session.Name, "attempts": n}).Info("picas duel finished")
	}
	res := GuessResult{Attempt: attempt, AttemptNumber: n, Score: me.score, Won: won}
	room.Mu.Unlock()

	if s.Board != nil {
		for _, r := range results {
			if err := s.Board.Record(ctx, r); err != nil {
				s.Logger.WithFields(logrus.Fields{"game": GameName, "player": r.Name}).Warnf("failed to record leaderboard result: %v", err)
			}
		}
	}
	return res, nil
}

// History returns the caller's judged guesses in order.
func (s *Server) History(sessionID uuid.UUID) ([]Attempt, error) {
	st, err := s.State(sessionID)
	if err != nil {
		return nil, err
	}
	return st.History, nil
}

func (s *Server) State(sessionID uuid.UUID) (State, error) {
	room, ok := s.Lobby.Lookup(sessionID)
	if !ok {
		return State{}, game.ErrNotFound
	}
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.stateFor(room.seatOf(sessionID)), nil
}

type numberRequest struct {
	Secret string `json:"secret"`
	Guess  string `json:"guess"`
}

func (s *Server) HandleMessage(ctx context.Context, sessionID uuid.UUID, msg game.Message) (any, error) {
	var req numberRequest
	if err := msg.Decode(&req); err != nil {
		return nil, err
	}
	switch msg.Type {
	case "secret":
		return s.SetSecret(sessionID, req.Secret)
	case "guess":
		return s.Guess(ctx, sessionID, req.Guess)
	case "history":
		h, err := s.History(sessionID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"history": h}, nil
	case "state":
		return s.State(sessionID)
	}
	return nil, game.UnknownAction(msg.Type)
}

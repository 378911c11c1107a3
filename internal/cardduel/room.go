// internal/cardduel/room.go
package cardduel

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/cards"
	"github.com/jason-s-yu/duelhall/internal/game"
)

// GameName keys this game in the leaderboard and action log.
const GameName = "cardduel"

// DefaultRounds is how many times each player plays before the game ends.
const DefaultRounds = 3

// EventUpdateTurn tells both players whose turn it is.
const EventUpdateTurn game.EventType = "update_turn"

// Win codes sent in game_over.
const (
	WinLoss = 0
	WinWon  = 1
	WinDraw = 2
)

// Player is one seat's private state.
type Player struct {
	Session   *game.Session
	Deck      *cards.PlayerDeck
	Total     int
	LastScore int
	LastHand  string
}

// Room is one two-player duel. Mu guards everything below it.
type Room struct {
	ID uuid.UUID

	Mu          sync.Mutex
	Players     [2]*Player
	CurrentSeat int
	Round       int
	Rounds      int
	Finished    bool

	actions *game.ActionLog
}

func newRoom(first, second *game.Session, rounds int, rng func() *rand.Rand) *Room {
	r := &Room{
		ID:          uuid.New(),
		CurrentSeat: 1,
		Rounds:      rounds,
	}
	r.Players[0] = &Player{Session: first, Deck: cards.NewPlayerDeck(rng())}
	r.Players[1] = &Player{Session: second, Deck: cards.NewPlayerDeck(rng())}
	return r
}

func (r *Room) RoomID() uuid.UUID { return r.ID }

func (r *Room) Members() []*game.Session {
	return []*game.Session{r.Players[0].Session, r.Players[1].Session}
}

// seatOf returns 1 or 2, or 0 when the session is not seated here.
func (r *Room) seatOf(sessionID uuid.UUID) int {
	for i, p := range r.Players {
		if p.Session.ID == sessionID {
			return i + 1
		}
	}
	return 0
}

func (r *Room) player(seat int) *Player {
	return r.Players[seat-1]
}

func (r *Room) opponent(seat int) *Player {
	return r.Players[2-seat]
}

func (r *Room) broadcast(ev game.Event) {
	for _, p := range r.Players {
		p.Session.Send(ev)
	}
}

// State is a seat's view of the room.
type State struct {
	Seat              int          `json:"seat"`
	Hand              []cards.Card `json:"hand"`
	Total             int          `json:"total"`
	LastScore         int          `json:"last_score"`
	LastHand          string       `json:"last_hand"`
	LastOpponentScore int          `json:"last_opponent_score"`
	CurrentTurn       int          `json:"current_turn"`
	Round             int          `json:"round"`
	Finished          bool         `json:"finished"`
}

// stateFor builds the view for seat. Caller holds Mu.
func (r *Room) stateFor(seat int) State {
	me := r.player(seat)
	return State{
		Seat:              seat,
		Hand:              me.Deck.Hand().Cards(),
		Total:             me.Total,
		LastScore:         me.LastScore,
		LastHand:          me.LastHand,
		LastOpponentScore: r.opponent(seat).LastScore,
		CurrentTurn:       r.CurrentSeat,
		Round:             r.Round,
		Finished:          r.Finished,
	}
}

// selection parses and checks codes against seat's hand. Caller holds Mu.
func (r *Room) selection(seat int, codes []string) ([]cards.Card, error) {
	if len(codes) == 0 {
		return nil, game.Invalidf("select at least one card")
	}
	hand := r.player(seat).Deck.Hand()
	seen := make(map[cards.Card]bool, len(codes))
	out := make([]cards.Card, 0, len(codes))
	for _, code := range codes {
		c, err := cards.ParseCard(code)
		if err != nil {
			return nil, game.Invalidf("%v", err)
		}
		if seen[c] {
			return nil, game.Invalidf("card %s selected twice", c)
		}
		if !hand.Contains(c) {
			return nil, game.Invalidf("card %s is not in your hand", c)
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

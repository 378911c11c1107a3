// internal/memory/room.go
package memory

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
)

const GameName = "memory"

// Pairs on a board; the board has twice as many cards.
const Pairs = 6

// MatchPoints is awarded for each matched pair.
const MatchPoints = 10

// DefaultRevealDelay is how long a mismatched pair stays face up.
const DefaultRevealDelay = time.Second

// Symbols is the pool boards draw their pairs from.
var Symbols = []string{"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🦁", "🐮", "🐷"}

const (
	EventFlip     game.EventType = "flip"
	EventResolved game.EventType = "resolved"
	EventReset    game.EventType = "reset"
)

type CardStatus string

const (
	Hidden   CardStatus = "hidden"
	Revealed CardStatus = "revealed"
	Matched  CardStatus = "matched"
)

type Status string

const (
	InProgress Status = "in_progress"
	Completed  Status = "completed"
)

type Card struct {
	Position int
	Symbol   string
	Status   CardStatus
}

// newBoard picks Pairs symbols at random, places each twice and shuffles.
func newBoard(rng *rand.Rand) []*Card {
	pool := make([]string, len(Symbols))
	copy(pool, Symbols)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	symbols := make([]string, 0, Pairs*2)
	for _, s := range pool[:Pairs] {
		symbols = append(symbols, s, s)
	}
	rng.Shuffle(len(symbols), func(i, j int) { symbols[i], symbols[j] = symbols[j], symbols[i] })

	board := make([]*Card, len(symbols))
	for i, s := range symbols {
		board[i] = &Card{Position: i, Symbol: s, Status: Hidden}
	}
	return board
}

// Room is one memory match. Mu guards all fields below it.
type Room struct {
	ID    uuid.UUID
	Seats [2]*game.Session

	Mu       sync.Mutex
	Cards    []*Card
	Scores   [2]int
	Current  int
	Status   Status
	Winner   int
	revealed []int
	// generation changes on every reset so pending resolutions can tell they are stale
	generation int
	timer      *time.Timer
	actions    *game.ActionLog
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

// deal starts a fresh board. Caller holds Mu.
func (r *Room) deal(rng *rand.Rand) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.Cards = newBoard(rng)
	r.Scores = [2]int{}
	r.Current = 1
	r.Status = InProgress
	r.Winner = 0
	r.revealed = nil
	r.generation++
}

// CardView hides the symbol of face-down cards.
type CardView struct {
	Position int        `json:"position"`
	Symbol   string     `json:"symbol,omitempty"`
	Status   CardStatus `json:"status"`
}

type State struct {
	Cards       []CardView `json:"cards"`
	Scores      [2]int     `json:"scores"`
	CurrentTurn int        `json:"current_turn"`
	Status      Status     `json:"status"`
	Winner      int        `json:"winner"`
	Seat        int        `json:"seat,omitempty"`
}

// state snapshots the room. Caller holds Mu.
func (r *Room) state() State {
	views := make([]CardView, len(r.Cards))
	for i, c := range r.Cards {
		v := CardView{Position: c.Position, Status: c.Status}
		if c.Status != Hidden {
			v.Symbol = c.Symbol
		}
		views[i] = v
	}
	return State{
		Cards:       views,
		Scores:      r.Scores,
		CurrentTurn: r.Current,
		Status:      r.Status,
		Winner:      r.Winner,
	}
}

// resolve settles the two revealed cards and reports whether the game ended. Caller holds Mu.
func (r *Room) resolve() bool {
	if len(r.revealed) != 2 {
		return false
	}
	a, b := r.Cards[r.revealed[0]], r.Cards[r.revealed[1]]
	r.revealed = nil

	if a.Symbol == b.Symbol {
		a.Status, b.Status = Matched, Matched
		r.Scores[r.Current-1] += MatchPoints
	} else {
		a.Status, b.Status = Hidden, Hidden
		r.Current = 3 - r.Current
	}

	for _, c := range r.Cards {
		if c.Status != Matched {
			return false
		}
	}
	r.Status = Completed
	switch {
	case r.Scores[0] > r.Scores[1]:
		r.Winner = 1
	case r.Scores[1] > r.Scores[0]:
		r.Winner = 2
	default:
		r.Winner = 0
	}
	return true
}

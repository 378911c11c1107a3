// Package leaderboard keeps per-game best scores and win/loss/draw tallies.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultLimit is the number of entries Top returns when no limit is given.
const DefaultLimit = 10

var ErrInvalidResult = errors.New("invalid leaderboard result")

// Outcome of a finished game from one player's point of view.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Entry is one player's standing in one game.
type Entry struct {
	Game      string    `json:"game"`
	Name      string    `json:"name"`
	BestScore int       `json:"best_score"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Draws     int       `json:"draws"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is what a game reports for one player when it ends.
type Result struct {
	Game    string
	Name    string
	Score   int
	Outcome Outcome
}

// Validate trims and checks r.
func (r *Result) Validate() error {
	r.Game = strings.TrimSpace(r.Game)
	r.Name = strings.TrimSpace(r.Name)
	if r.Game == "" {
		return fmt.Errorf("%w: game is required", ErrInvalidResult)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidResult)
	}
	switch r.Outcome {
	case OutcomeNone, OutcomeWin, OutcomeLoss, OutcomeDraw:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidResult, r.Outcome)
	}
	return nil
}

// Store is implemented by every leaderboard backend.
type Store interface {
	// Record upserts the player's entry: best score is the max seen, and the
	// outcome's counter is incremented.
	Record(ctx context.Context, r Result) error
	// Top lists a game's entries by best score desc, wins desc, name asc.
	Top(ctx context.Context, game string, limit int) ([]Entry, error)
}

// Apply folds r into e.
func (e *Entry) Apply(r Result, now time.Time) {
	if r.Score > e.BestScore {
		e.BestScore = r.Score
	}
	switch r.Outcome {
	case OutcomeWin:
		e.Wins++
	case OutcomeLoss:
		e.Losses++
	case OutcomeDraw:
		e.Draws++
	}
	e.UpdatedAt = now
}

// NormalizeLimit maps non-positive limits to DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// SortEntries orders entries the way Top returns them.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.BestScore != b.BestScore {
			return a.BestScore > b.BestScore
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.Name < b.Name
	})
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]map[string]*Entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string]*Entry), now: time.Now}
}

func (m *Memory) Record(ctx context.Context, r Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.entries[r.Game]
	if !ok {
		byName = make(map[string]*Entry)
		m.entries[r.Game] = byName
	}
	e, ok := byName[r.Name]
	if !ok {
		e = &Entry{Game: r.Game, Name: r.Name, BestScore: r.Score}
		byName[r.Name] = e
	}
	e.Apply(r, m.now().UTC())
	return nil
}

func (m *Memory) Top(ctx context.Context, game string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	out := make([]Entry, 0, len(m.entries[game]))
	for _, e := range m.entries[game] {
		out = append(out, *e)
	}
	m.mu.Unlock()

	SortEntries(out)
	if limit = NormalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

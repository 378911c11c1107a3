// internal/connect4/board.go
package connect4

import (
	"github.com/jason-s-yu/duelhall/internal/game"
)

const (
	Rows    = 6
	Columns = 7
)

// Board cells hold 0 (empty), 1 or 2.
type Board [Rows][Columns]int

// Game is one connect-four board and its turn state. It is not safe for
// concurrent use; owners guard it with their own mutex.
type Game struct {
	Board   Board
	Current int
	Winner  int
	Over    bool
	Moves   int
}

func NewGame() *Game {
	return &Game{Current: 1}
}

// Reset clears the board and gives the first move to player 1.
func (g *Game) Reset() {
	*g = Game{Current: 1}
}

// Drop places the current player's disc in the lowest empty row of col and
// returns that row. On a win Over is set and Winner is the mover; a full
// board with no winner ends the game with Winner 0.
func (g *Game) Drop(col int) (int, error) {
	if g.Over {
		return 0, game.ErrGameOver
	}
	if col < 0 || col >= Columns {
		return 0, game.Invalidf("column %d is out of range", col)
	}
	row := -1
	for r := Rows - 1; r >= 0; r-- {
		if g.Board[r][col] == 0 {
			row = r
			break
		}
	}
	if row < 0 {
		return 0, game.Invalidf("column %d is full", col)
	}

	g.Board[row][col] = g.Current
	g.Moves++
	switch {
	case g.wins(row, col):
		g.Over = true
		g.Winner = g.Current
	case g.topRowFull():
		g.Over = true
		g.Winner = 0
	default:
		g.Current = 3 - g.Current
	}
	return row, nil
}

var directions = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// wins checks the four lines through (row, col).
func (g *Game) wins(row, col int) bool {
	p := g.Board[row][col]
	for _, d := range directions {
		n := 1 + g.count(row, col, d[0], d[1], p) + g.count(row, col, -d[0], -d[1], p)
		if n >= 4 {
			return true
		}
	}
	return false
}

func (g *Game) count(row, col, dr, dc, p int) int {
	n := 0
	for r, c := row+dr, col+dc; r >= 0 && r < Rows && c >= 0 && c < Columns && g.Board[r][c] == p; r, c = r+dr, c+dc {
		n++
	}
	return n
}

func (g *Game) topRowFull() bool {
	for _, cell := range g.Board[0] {
		if cell == 0 {
			return false
		}
	}
	return true
}

// State is the JSON view of a board. Winner is null while the game is running
// and 0 for a draw.
type State struct {
	Board         Board `json:"board"`
	CurrentPlayer int   `json:"current_player"`
	Winner        *int  `json:"winner"`
	GameOver      bool  `json:"game_over"`
	Draw          bool  `json:"draw"`
}

func (g *Game) State() State {
	st := State{
		Board:         g.Board,
		CurrentPlayer: g.Current,
		GameOver:      g.Over,
	}
	if g.Over {
		w := g.Winner
		st.Winner = &w
		st.Draw = w == 0
	}
	return st
}

package connect4

import (
	"testing"

	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(t *testing.T, g *Game, cols ...int) {
	t.Helper()
	for _, c := range cols {
		_, err := g.Drop(c)
		require.NoError(t, err, "drop in column %d", c)
	}
}

func TestDropStacksFromBottom(t *testing.T) {
	g := NewGame()
	row, err := g.Drop(3)
	require.NoError(t, err)
	assert.Equal(t, Rows-1, row)
	assert.Equal(t, 1, g.Board[Rows-1][3])
	assert.Equal(t, 2, g.Current)

	row, err = g.Drop(3)
	require.NoError(t, err)
	assert.Equal(t, Rows-2, row)
	assert.Equal(t, 2, g.Board[Rows-2][3])
}

func TestDropRejectsBadColumns(t *testing.T) {
	g := NewGame()
	_, err := g.Drop(-1)
	assert.ErrorIs(t, err, game.ErrInvalid)
	_, err = g.Drop(Columns)
	assert.ErrorIs(t, err, game.ErrInvalid)

	play(t, g, 0, 0, 0, 0, 0, 0)
	_, err = g.Drop(0)
	assert.ErrorIs(t, err, game.ErrInvalid)
	assert.Equal(t, 1, g.Current, "failed drop keeps the turn")
}

func TestHorizontalWin(t *testing.T) {
	g := NewGame()
	play(t, g, 0, 0, 1, 1, 2, 2, 3)
	assert.True(t, g.Over)
	assert.Equal(t, 1, g.Winner)

	_, err := g.Drop(4)
	assert.ErrorIs(t, err, game.ErrGameOver)
}

func TestVerticalWin(t *testing.T) {
	g := NewGame()
	play(t, g, 0, 1, 0, 1, 0, 1, 6, 1)
	assert.True(t, g.Over)
	assert.Equal(t, 2, g.Winner)
}

func TestDiagonalWins(t *testing.T) {
	g := NewGame()
	// rising diagonal for player 1: (5,0) (4,1) (3,2) (2,3)
	play(t, g, 0, 1, 1, 2, 2, 3, 2, 3, 3, 6, 3)
	assert.True(t, g.Over)
	assert.Equal(t, 1, g.Winner)

	g = NewGame()
	// falling diagonal for player 1: (2,0) (3,1) (4,2) (5,3)
	play(t, g, 3, 2, 2, 1, 1, 0, 1, 0, 0, 6, 0)
	assert.True(t, g.Over)
	assert.Equal(t, 1, g.Winner)
}

func TestDraw(t *testing.T) {
	g := NewGame()
	// column pairs filled in an order that never lines up four
	order := []int{0, 1, 0, 1, 0, 1, 1, 0, 1, 0, 1, 0,
		2, 3, 2, 3, 2, 3, 3, 2, 3, 2, 3, 2,
		4, 5, 4, 5, 4, 5, 5, 4, 5, 4, 5, 4,
		6, 6, 6, 6, 6, 6}
	play(t, g, order...)
	assert.True(t, g.Over)
	assert.Equal(t, 0, g.Winner)
	st := g.State()
	require.NotNil(t, st.Winner)
	assert.Equal(t, 0, *st.Winner)
	assert.True(t, st.Draw)
}

func TestStateWhileRunning(t *testing.T) {
	g := NewGame()
	st := g.State()
	assert.Nil(t, st.Winner)
	assert.False(t, st.GameOver)
	assert.Equal(t, 1, st.CurrentPlayer)
}

func TestReset(t *testing.T) {
	g := NewGame()
	play(t, g, 0, 0, 1, 1, 2, 2, 3)
	g.Reset()
	assert.False(t, g.Over)
	assert.Equal(t, 1, g.Current)
	assert.Equal(t, Board{}, g.Board)
}

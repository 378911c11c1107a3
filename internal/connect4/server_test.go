package connect4

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/game/gametest"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, *leaderboard.Memory) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	board := leaderboard.NewMemory()
	return NewServer(logger, board, nil), board
}

func pair(s *Server) (*game.Session, *game.Session) {
	a, b := game.NewSession("red"), game.NewSession("yellow")
	s.Connect(a)
	s.Connect(b)
	gametest.Drain(a)
	gametest.Drain(b)
	return a, b
}

func TestLocalBoard(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	st, err := s.HandleMessage(ctx, uuid.Nil, game.Message{Type: "move", Data: []byte(`{"column":3}`)})
	require.NoError(t, err)
	assert.Equal(t, 2, st.(State).CurrentPlayer)
	assert.Equal(t, 1, st.(State).Board[Rows-1][3])

	_, err = s.HandleMessage(ctx, uuid.Nil, game.Message{Type: "move", Data: []byte(`{"column":9}`)})
	assert.ErrorIs(t, err, game.ErrInvalid)

	_, err = s.HandleMessage(ctx, uuid.Nil, game.Message{Type: "move", Data: []byte(`{}`)})
	assert.ErrorIs(t, err, game.ErrInvalid)

	st, err = s.HandleMessage(ctx, uuid.Nil, game.Message{Type: "reset"})
	require.NoError(t, err)
	assert.Equal(t, Board{}, st.(State).Board)
}

func TestMoveEnforcesSeat(t *testing.T) {
	s, _ := newTestServer()
	a, b := pair(s)
	ctx := context.Background()

	_, err := s.Move(ctx, b.ID, 0)
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	res, err := s.Move(ctx, a.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, Rows-1, res.Row)
	assert.Equal(t, 1, res.Player)

	ev := gametest.Drain(b)
	require.Len(t, ev, 1)
	assert.Equal(t, EventMove, ev[0].Type)
}

func TestPairedGameRecordsResult(t *testing.T) {
	s, board := newTestServer()
	a, b := pair(s)
	ctx := context.Background()

	for _, col := range []int{0, 0, 1, 1, 2, 2} {
		mover := a
		if st, _ := s.State(a.ID); st.CurrentPlayer == 2 {
			mover = b
		}
		_, err := s.Move(ctx, mover.ID, col)
		require.NoError(t, err)
	}
	res, err := s.Move(ctx, a.ID, 3)
	require.NoError(t, err)
	assert.True(t, res.State.GameOver)

	over := gametest.Last(gametest.Drain(b), game.EventGameOver)
	require.NotNil(t, over)
	assert.Equal(t, 1, over.Payload.(map[string]any)["winner"])

	_, err = s.Move(ctx, b.ID, 4)
	assert.ErrorIs(t, err, game.ErrGameOver)

	top, err := board.Top(ctx, GameName, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	byName := map[string]leaderboard.Entry{}
	for _, e := range top {
		byName[e.Name] = e
	}
	assert.Equal(t, 1, byName["red"].Wins)
	assert.Equal(t, 1, byName["yellow"].Losses)

	st, err := s.Rematch(b.ID)
	require.NoError(t, err)
	assert.False(t, st.GameOver)
	assert.Equal(t, 1, st.CurrentPlayer)
}

func TestRematchRequiresFinishedGame(t *testing.T) {
	s, _ := newTestServer()
	a, _ := pair(s)
	_, err := s.Rematch(a.ID)
	assert.ErrorIs(t, err, game.ErrInvalid)
}

func TestDisconnectEndsRoom(t *testing.T) {
	s, _ := newTestServer()
	a, b := pair(s)
	s.Disconnect(a.ID)

	ev := gametest.Drain(b)
	require.Len(t, ev, 1)
	assert.Equal(t, game.EventOpponentLeft, ev[0].Type)

	_, err := s.Move(context.Background(), b.ID, 0)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

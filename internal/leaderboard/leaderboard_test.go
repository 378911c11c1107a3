package leaderboard

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordKeepsBestScore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Record(ctx, Result{Game: "cardduel", Name: "ana", Score: 120, Outcome: OutcomeWin}))
	require.NoError(t, m.Record(ctx, Result{Game: "cardduel", Name: "ana", Score: 80, Outcome: OutcomeLoss}))
	require.NoError(t, m.Record(ctx, Result{Game: "cardduel", Name: "ana", Score: 90, Outcome: OutcomeDraw}))

	top, err := m.Top(ctx, "cardduel", 0)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 120, top[0].BestScore)
	assert.Equal(t, 1, top[0].Wins)
	assert.Equal(t, 1, top[0].Losses)
	assert.Equal(t, 1, top[0].Draws)
	assert.False(t, top[0].UpdatedAt.IsZero())
}

func TestMemoryFirstNegativeScore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Record(ctx, Result{Game: "picas", Name: "bo", Score: -36}))
	top, err := m.Top(ctx, "picas", 5)
	require.NoError(t, err)
	assert.Equal(t, -36, top[0].BestScore)
}

func TestMemoryTopOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Record(ctx, Result{Game: "g", Name: "carl", Score: 50, Outcome: OutcomeWin}))
	require.NoError(t, m.Record(ctx, Result{Game: "g", Name: "bea", Score: 50}))
	require.NoError(t, m.Record(ctx, Result{Game: "g", Name: "abe", Score: 50}))
	require.NoError(t, m.Record(ctx, Result{Game: "g", Name: "dan", Score: 70}))
	require.NoError(t, m.Record(ctx, Result{Game: "other", Name: "zed", Score: 999}))

	top, err := m.Top(ctx, "g", 3)
	require.NoError(t, err)
	names := make([]string, len(top))
	for i, e := range top {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"dan", "carl", "abe"}, names)
}

func TestMemoryDefaultLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 15; i++ {
		require.NoError(t, m.Record(ctx, Result{Game: "g", Name: fmt.Sprintf("p%02d", i), Score: i}))
	}
	top, err := m.Top(ctx, "g", -1)
	require.NoError(t, err)
	assert.Len(t, top, DefaultLimit)
	assert.Equal(t, 14, top[0].BestScore)
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assert.ErrorIs(t, m.Record(ctx, Result{Game: "g", Name: "  "}), ErrInvalidResult)
	assert.ErrorIs(t, m.Record(ctx, Result{Name: "x"}), ErrInvalidResult)
	assert.ErrorIs(t, m.Record(ctx, Result{Game: "g", Name: "x", Outcome: "forfeit"}), ErrInvalidResult)
}

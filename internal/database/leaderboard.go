package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
)

// LeaderboardStore is the PostgreSQL leaderboard backend.
type LeaderboardStore struct {
	Pool *pgxpool.Pool
}

func (s *LeaderboardStore) Record(ctx context.Context, r leaderboard.Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var wins, losses, draws int
	switch r.Outcome {
	case leaderboard.OutcomeWin:
		wins = 1
	case leaderboard.OutcomeLoss:
		losses = 1
	case leaderboard.OutcomeDraw:
		draws = 1
	}

	q := `
	INSERT INTO leaderboard (game, name, best_score, wins, losses, draws, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (game, name) DO UPDATE SET
	  best_score = GREATEST(leaderboard.best_score, EXCLUDED.best_score),
	  wins = leaderboard.wins + EXCLUDED.wins,
	  losses = leaderboard.losses + EXCLUDED.losses,
	  draws = leaderboard.draws + EXCLUDED.draws,
	  updated_at = NOW()
	`
	if _, err := s.Pool.Exec(ctx, q, r.Game, r.Name, r.Score, wins, losses, draws); err != nil {
		return fmt.Errorf("record leaderboard result: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Top(ctx context.Context, game string, limit int) ([]leaderboard.Entry, error) {
	q := `
	SELECT game, name, best_score, wins, losses, draws, updated_at
	FROM leaderboard
	WHERE game=$1
	ORDER BY best_score DESC, wins DESC, name ASC
	LIMIT $2
	`
	rows, err := s.Pool.Query(ctx, q, game, leaderboard.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.Game, &e.Name, &e.BestScore, &e.Wins, &e.Losses, &e.Draws, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Package sqlite provides a SQLite-backed leaderboard store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// Store persists leaderboard entries in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) the database at path and ensures the schema exists.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Record upserts one result.
func (s *Store) Record(ctx context.Context, r leaderboard.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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

	const q = `INSERT INTO leaderboard (game, name, best_score, wins, losses, draws, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (game, name) DO UPDATE SET
		   best_score = MAX(leaderboard.best_score, excluded.best_score),
		   wins = leaderboard.wins + excluded.wins,
		   losses = leaderboard.losses + excluded.losses,
		   draws = leaderboard.draws + excluded.draws,
		   updated_at = excluded.updated_at`

	exec := func() error {
		_, err := s.sqlDB.ExecContext(ctx, q, r.Game, r.Name, r.Score, wins, losses, draws, toMillis(time.Now()))
		return err
	}
	err := exec()
	if isBusy(err) {
		err = exec()
	}
	if err != nil {
		return fmt.Errorf("record leaderboard result: %w", err)
	}
	return nil
}

// Top lists the best entries for game.
func (s *Store) Top(ctx context.Context, game string, limit int) ([]leaderboard.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT game, name, best_score, wins, losses, draws, updated_at
		 FROM leaderboard
		 WHERE game = ?
		 ORDER BY best_score DESC, wins DESC, name ASC
		 LIMIT ?`,
		game, leaderboard.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.Entry
	for rows.Next() {
		var e leaderboard.Entry
		var updated int64
		if err := rows.Scan(&e.Game, &e.Name, &e.BestScore, &e.Wins, &e.Losses, &e.Draws, &updated); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.UpdatedAt = fromMillis(updated)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return out, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

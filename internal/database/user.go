package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/duelhall/internal/models"
	"github.com/jason-s-yu/duelhall/internal/users"
)

// UserStore keeps accounts in the users table. Passwords arrive already hashed.
type UserStore struct {
	Pool *pgxpool.Pool
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	q := `INSERT INTO users (id, user_id, password, is_active)
	      VALUES ($1, $2, $3, $4)
	      RETURNING created_at`

	err := pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, user.ID, user.UserID, user.Password, user.IsActive).Scan(&user.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return users.ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const selectUser = `SELECT id, user_id, password, is_active, created_at FROM users`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.UserID, &u.Password, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(s.Pool.QueryRow(ctx, selectUser+` WHERE user_id=$1`, userID))
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.Pool.QueryRow(ctx, selectUser+` WHERE id=$1`, id))
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.Pool.Query(ctx, selectUser+` ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetActive enables or disables login for userID.
func (s *UserStore) SetActive(ctx context.Context, userID string, active bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET is_active=$1 WHERE user_id=$2`, active, userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetPassword(ctx context.Context, userID, hash string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET password=$1 WHERE user_id=$2`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, userID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM users WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account of the users service. UserID is the login name.
type User struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Password  string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

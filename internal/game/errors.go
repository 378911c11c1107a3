// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// Error classes shared by every game. Operations wrap one of these so the
// transport layer can pick a status with errors.Is. A failed operation never
// mutates room state.
var (
	ErrInvalid     = errors.New("invalid request")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotFound    = errors.New("not found")
	ErrGameOver    = errors.New("game is over")
)

// Invalidf wraps ErrInvalid with a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

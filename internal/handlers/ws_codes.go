// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes.
const (
	InvalidAuthTokenError websocket.StatusCode = 3001 // token presented but invalid, expired or revoked
)

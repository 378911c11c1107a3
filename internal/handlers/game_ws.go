// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	maxNameLen   = 32
)

// playerName picks the display name for a socket: the authenticated account
// when a valid token is presented, else ?name=, else a guest name.
func (a *API) playerName(r *http.Request) (string, error) {
	if a.Users != nil {
		if token := extractToken(r); token != "" {
			u, err := a.Users.Authenticate(r.Context(), token)
			if err != nil {
				return "", err
			}
			return u.UserID, nil
		}
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		return "guest-" + uuid.NewString()[:8], nil
	}
	return truncateName(name), nil
}

// truncateName keeps at most maxNameLen runes.
func truncateName(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	return string([]rune(name)[:maxNameLen])
}

// GameWSHandler upgrades GET /{game}/ws, pairs the socket through the game's
// lobby and then relays client actions until the socket closes.
func (a *API) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	name, gs, ok := a.lookupGame(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(a.Origins),
	})
	if err != nil {
		a.Logger.Warnf("websocket accept error for %s: %v", name, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	log := middleware.SocketEntry(a.Logger, r, name)
	player, err := a.playerName(r)
	if err != nil {
		log.Warnf("websocket auth failed: %v", err)
		c.Close(InvalidAuthTokenError, "invalid auth token")
		return
	}

	opened := time.Now()
	log.WithField("player", player).Info("WebSocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := game.NewSession(player)
	sess.Send(game.Event{Type: game.EventConnected, Payload: map[string]any{"session": sess.ID, "name": sess.Name}})

	go func() {
		writePump(ctx, c, sess, a.Logger)
		cancel()
	}()

	gs.Connect(sess)
	err = readPump(ctx, c, gs, sess, a.Logger)

	gs.Disconnect(sess.ID)
	sess.Close()
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	middleware.LogSocketClosed(log, player, opened, err)
	c.Close(websocket.StatusNormalClosure, "")
}

// readPump handles client messages until the socket or ctx closes.
func readPump(ctx context.Context, c *websocket.Conn, gs GameServer, sess *game.Session, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			sess.Send(game.Event{Type: game.EventError, Error: "binary messages are not supported"})
			continue
		}

		msg, err := game.ParseMessage(data)
		if err != nil {
			sess.Send(game.Event{Type: game.EventError, Error: err.Error()})
			continue
		}
		if msg.Type == "ping" {
			sess.Send(game.Event{Type: game.EventPong})
			continue
		}

		out, err := gs.HandleMessage(ctx, sess.ID, msg)
		var ev game.Event
		if err != nil {
			ev = game.Event{Type: game.EventError, Action: msg.Type, Error: wsErrorText(err)}
		} else {
			ev = game.Event{Type: game.EventResult, Action: msg.Type, Payload: out}
		}
		if !sess.Send(ev) {
			logger.WithFields(logrus.Fields{"session": sess.ID, "action": msg.Type}).Warn("outbox full, dropped reply")
		}
	}
}

func wsErrorText(err error) string {
	if gameStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// writePump drains the session's outbox onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, sess *game.Session, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sess.Outbox():
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing message for session %v: %v", sess.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warnf("failed to write to websocket for session %v: %v", sess.ID, err)
				}
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("ping failed for session %v: %v", sess.ID, err)
				return
			}
		}
	}
}

// originPatterns turns configured origins into host patterns for websocket.Accept.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		o = strings.TrimPrefix(strings.TrimPrefix(o, "https://"), "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

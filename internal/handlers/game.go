// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// gameStatus maps a game error class to its HTTP status.
func gameStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameOver):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func (a *API) writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	status := gameStatus(err)
	if status == http.StatusInternalServerError {
		a.Logger.WithFields(logrus.Fields{"path": r.URL.Path}).Errorf("game action failed: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// parseSession reads a session id. An empty string is uuid.Nil, which only
// connect4 accepts (its shared local board).
func parseSession(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, game.Invalidf("malformed session id")
	}
	return id, nil
}

// GameStateHandler serves GET /{game}/state?session=.
func (a *API) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	_, gs, ok := a.lookupGame(w, r)
	if !ok {
		return
	}
	sessionID, err := parseSession(r.URL.Query().Get("session"))
	if err != nil {
		a.writeGameError(w, r, err)
		return
	}
	out, err := gs.HandleMessage(r.Context(), sessionID, game.Message{Type: "state"})
	if err != nil {
		a.writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GameActionHandler serves POST /{game}/{action}. The JSON body carries the
// session id next to the action's own fields.
func (a *API) GameActionHandler(w http.ResponseWriter, r *http.Request) {
	name, gs, ok := a.lookupGame(w, r)
	if !ok {
		return
	}
	action := strings.ToLower(chi.URLParam(r, "action"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var head struct {
		Session string `json:"session"`
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &head); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
	} else {
		body = nil
	}
	sessionID, err := parseSession(head.Session)
	if err != nil {
		a.writeGameError(w, r, err)
		return
	}

	out, err := gs.HandleMessage(r.Context(), sessionID, game.Message{Type: action, Data: body})
	if err != nil {
		a.Logger.WithFields(logrus.Fields{"game": name, "action": action, "session": sessionID}).Debugf("action rejected: %v", err)
		a.writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/sirupsen/logrus"
)

func (a *API) knownGame(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "game")
	if _, ok := a.Games[name]; !ok {
		writeError(w, http.StatusNotFound, "unknown game "+name)
		return "", false
	}
	return name, true
}

// LeaderboardHandler serves GET /leaderboard/{game}?limit=.
func (a *API) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := a.knownGame(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := a.Board.Top(r.Context(), name, limit)
	if err != nil {
		a.Logger.WithFields(logrus.Fields{"game": name}).Errorf("leaderboard query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": name, "entries": entries})
}

type submitScoreRequest struct {
	Name    string              `json:"name"`
	Score   *int                `json:"score"`
	Outcome leaderboard.Outcome `json:"outcome"`
}

// SubmitScoreHandler serves POST /leaderboard/{game}.
func (a *API) SubmitScoreHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := a.knownGame(w, r)
	if !ok {
		return
	}
	var req submitScoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required")
		return
	}
	res := leaderboard.Result{Game: name, Name: req.Name, Score: *req.Score, Outcome: req.Outcome}
	if err := a.Board.Record(r.Context(), res); err != nil {
		if errors.Is(err, leaderboard.ErrInvalidResult) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Logger.WithFields(logrus.Fields{"game": name, "player": req.Name}).Errorf("leaderboard insert failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "score recorded"})
}

// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/jason-s-yu/duelhall/internal/middleware"
	"github.com/jason-s-yu/duelhall/internal/users"
	"github.com/sirupsen/logrus"
)

// GameServer is implemented by every game package's Server.
type GameServer interface {
	Connect(sess *game.Session)
	Disconnect(sessionID uuid.UUID)
	HandleMessage(ctx context.Context, sessionID uuid.UUID, msg game.Message) (any, error)
}

// API holds everything the HTTP and websocket handlers need.
type API struct {
	Logger *logrus.Logger
	Games  map[string]GameServer
	Board  leaderboard.Store
	// Users is optional; without it the /users routes are not mounted and
	// websocket players are identified by the name query parameter only.
	Users   *users.Service
	Origins []string
}

func (a *API) gameNames() []string {
	names := make([]string, 0, len(a.Games))
	for n := range a.Games {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Router wires every route.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(a.Logger))
	r.Use(middleware.CORS(a.Origins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/games", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"games": a.gameNames()})
	})

	r.Get("/leaderboard/{game}", a.LeaderboardHandler)
	r.Post("/leaderboard/{game}", a.SubmitScoreHandler)

	if a.Users != nil {
		r.Post("/users", a.CreateUserHandler)
		r.Post("/users/login", a.LoginHandler)
		r.Get("/users/me", a.MeHandler)
		r.Post("/users/logout", a.LogoutHandler)
	}

	r.Get("/{game}/ws", a.GameWSHandler)
	r.Get("/{game}/state", a.GameStateHandler)
	r.Post("/{game}/{action}", a.GameActionHandler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (a *API) lookupGame(w http.ResponseWriter, r *http.Request) (string, GameServer, bool) {
	name := chi.URLParam(r, "game")
	gs, ok := a.Games[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown game "+name)
		return "", nil, false
	}
	return name, gs, true
}

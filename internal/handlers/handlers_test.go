package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/duelhall/internal/auth"
	"github.com/jason-s-yu/duelhall/internal/cache"
	"github.com/jason-s-yu/duelhall/internal/cardduel"
	"github.com/jason-s-yu/duelhall/internal/connect4"
	"github.com/jason-s-yu/duelhall/internal/game"
	"github.com/jason-s-yu/duelhall/internal/leaderboard"
	"github.com/jason-s-yu/duelhall/internal/memory"
	"github.com/jason-s-yu/duelhall/internal/picas"
	"github.com/jason-s-yu/duelhall/internal/users"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	board := leaderboard.NewMemory()
	signer, err := auth.NewSigner(time.Hour)
	require.NoError(t, err)
	return &API{
		Logger: logger,
		Board:  board,
		Games: map[string]GameServer{
			cardduel.GameName: cardduel.NewServer(logger, board, nil, 2, rand.New(rand.NewSource(1))),
			connect4.GameName: connect4.NewServer(logger, board, nil),
			memory.GameName:   memory.NewServer(logger, board, nil, 0, rand.New(rand.NewSource(1))),
			picas.GameName:    picas.NewServer(logger, board, nil),
		},
		Users: &users.Service{
			Store:   users.NewMemoryStore(),
			Signer:  signer,
			Revoker: cache.NewMemoryRevoker(),
			Params:  &auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
			Logger:  logger,
		},
		Origins: []string{"*"},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestConnect4LocalBoardOverHTTP(t *testing.T) {
	h := newTestAPI(t).Router()

	w := do(t, h, http.MethodPost, "/connect4/move", `{"column":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["current_player"])

	w = do(t, h, http.MethodPost, "/connect4/move", `{"column":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "error")

	w = do(t, h, http.MethodGet, "/connect4/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)["board"].([]any)
	assert.EqualValues(t, 1, board[connect4.Rows-1].([]any)[3])

	w = do(t, h, http.MethodPost, "/connect4/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["current_player"])
}

func TestGameRouteErrors(t *testing.T) {
	h := newTestAPI(t).Router()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/chess/state", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/picas/state?session=nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/picas/state?session=7f6c1b9e-0a43-4f45-9f1e-2b8c9fd7e0c1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/picas/state", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/picas/guess", `{"session":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/connect4/fly", `{}`).Code)

	w := do(t, h, http.MethodGet, "/games", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"cardduel", "connect4", "memory", "picas"}, decode(t, w)["games"])
}

func TestGameStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, gameStatus(game.Invalidf("bad column")))
	assert.Equal(t, http.StatusConflict, gameStatus(game.ErrNotYourTurn))
	assert.Equal(t, http.StatusNotFound, gameStatus(game.ErrNotFound))
	assert.Equal(t, http.StatusGone, gameStatus(game.ErrGameOver))
	assert.Equal(t, http.StatusInternalServerError, gameStatus(io.EOF))
}

func TestLeaderboardRoutes(t *testing.T) {
	h := newTestAPI(t).Router()

	w := do(t, h, http.MethodPost, "/leaderboard/picas", `{"name":"ana","score":964,"outcome":"win"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, h, http.MethodPost, "/leaderboard/picas", `{"name":"bo","score":120}`)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/leaderboard/picas", `{"name":"cy"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/leaderboard/picas", `{"name":" ","score":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/leaderboard/picas", `{"name":"cy","score":1,"outcome":"forfeit"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/leaderboard/chess", `{"name":"cy","score":1}`).Code)

	w = do(t, h, http.MethodGet, "/leaderboard/picas?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode(t, w)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "ana", entries[0].(map[string]any)["name"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/leaderboard/picas?limit=x", "").Code)

	w = do(t, h, http.MethodGet, "/leaderboard/memory", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["entries"])
}

func TestUserRoutes(t *testing.T) {
	h := newTestAPI(t).Router()

	w := do(t, h, http.MethodPost, "/users", `{"user_id":"ana","password":"pw"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "argon2")
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/users", `{"user_id":"ana","password":"x"}`).Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/users/login", `{"user_id":"ana","password":"bad"}`).Code)

	form := url.Values{"username": {"ana"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	token := body["access_token"].(string)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)

	w = do(t, h, http.MethodGet, "/users/me", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", decode(t, w)["user_id"])

	w = do(t, h, http.MethodGet, "/users/me", "", "Cookie", authCookie+"="+token)
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/users/logout", "", "Authorization", "Bearer "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/users/me", "", "Authorization", "Bearer "+token).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/users/me", "", "Authorization", "Bearer junk").Code)
}

type wsEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id"`
	Seat    int             `json:"seat"`
	Action  string          `json:"action"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

// readUntil reads events until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) wsEvent {
	t.Helper()
	for {
		var ev wsEvent
		require.NoError(t, wsjson.Read(ctx, c, &ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func TestPicasOverWebSocket(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, srv, "/picas/ws?name=ana")
	readUntil(t, ctx, a, "waiting")
	b := dial(t, ctx, srv, "/picas/ws?name=bo")

	var conn struct {
		Session string `json:"session"`
		Name    string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(readUntil(t, ctx, b, "connected").Payload, &conn))
	assert.Equal(t, "bo", conn.Name)

	matched := readUntil(t, ctx, a, "matched")
	assert.Equal(t, 1, matched.Seat)
	assert.Equal(t, 2, readUntil(t, ctx, b, "matched").Seat)

	require.NoError(t, wsjson.Write(ctx, a, map[string]any{"type": "ping"}))
	readUntil(t, ctx, a, "pong")

	require.NoError(t, wsjson.Write(ctx, a, map[string]any{"type": "guess", "guess": "12345"}))
	ev := readUntil(t, ctx, a, "error")
	assert.Equal(t, "guess", ev.Action)

	require.NoError(t, wsjson.Write(ctx, a, map[string]any{"type": "secret", "secret": "12345"}))
	assert.Equal(t, "secret", readUntil(t, ctx, a, "result").Action)

	// b sets its secret over HTTP using the session id it was given
	payload, _ := json.Marshal(map[string]string{"session": conn.Session, "secret": "67890"})
	resp, err := http.Post(srv.URL+"/picas/secret", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	readUntil(t, ctx, a, "ready")
	require.NoError(t, wsjson.Write(ctx, a, map[string]any{"type": "guess", "guess": "67890"}))
	res := readUntil(t, ctx, a, "result")
	var guess struct {
		Won   bool `json:"won"`
		Score int  `json:"score"`
	}
	require.NoError(t, json.Unmarshal(res.Payload, &guess))
	assert.True(t, guess.Won)
	assert.Equal(t, picas.StartingScore-picas.GuessCost+picas.FirstTryBonus, guess.Score)
	readUntil(t, ctx, b, "game_over")
}

func TestOpponentLeftOverWebSocket(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, srv, "/connect4/ws?name=red")
	readUntil(t, ctx, a, "waiting")
	b := dial(t, ctx, srv, "/connect4/ws?name=yellow")
	readUntil(t, ctx, a, "matched")
	readUntil(t, ctx, b, "matched")

	require.NoError(t, b.Close(websocket.StatusNormalClosure, "bye"))
	readUntil(t, ctx, a, "opponent_left")
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t).Router())
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/memory/ws", &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer junk"}},
	})
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, InvalidAuthTokenError, websocket.CloseStatus(err))
}

func TestTruncateNameKeepsRunes(t *testing.T) {
	assert.Equal(t, "ana", truncateName("ana"))

	long := strings.Repeat("ñ", maxNameLen+5)
	got := truncateName(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxNameLen, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("ñ", maxNameLen), got)
}

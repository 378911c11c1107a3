package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/jason-s-yu/duelhall/internal/auth"
	"github.com/jason-s-yu/duelhall/internal/users"
	"github.com/sirupsen/logrus"
)

func (a *API) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrInactiveUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrUserExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "could not validate credentials")
	default:
		a.Logger.Errorf("users request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type credentials struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c credentials) name() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Username
}

// readCredentials accepts a JSON body or an OAuth2-style form
// (username, password).
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return c, false
		}
		c.Username = r.PostForm.Get("username")
		c.Password = r.PostForm.Get("password")
		return c, true
	}
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return c, false
	}
	return c, true
}

// CreateUserHandler serves POST /users.
func (a *API) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	u, err := a.Users.Register(r.Context(), c.name(), c.Password)
	if err != nil {
		a.writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// LoginHandler serves POST /users/login. The token is returned in the body
// and also set as the auth_token cookie.
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := readCredentials(w, r)
	if !ok {
		return
	}
	token, err := a.Users.Login(r.Context(), c.name(), c.Password)
	if err != nil {
		a.Logger.WithFields(logrus.Fields{"user_id": c.name()}).Infof("login failed: %v", err)
		a.writeUserError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.Users.Signer.TTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// MeHandler serves GET /users/me.
func (a *API) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := a.Users.Authenticate(r.Context(), extractToken(r))
	if err != nil {
		a.writeUserError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// LogoutHandler serves POST /users/logout.
func (a *API) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Users.Logout(r.Context(), extractToken(r)); err != nil {
		a.writeUserError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: authCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

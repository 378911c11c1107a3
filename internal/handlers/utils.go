package handlers

import (
	"net/http"
	"strings"
)

const authCookie = "auth_token"

// extractToken returns the bearer token from the Authorization header, or
// the auth_token cookie, or "".
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(authCookie); err == nil {
		return c.Value
	}
	return ""
}

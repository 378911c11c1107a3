// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware writes one entry per request. Server errors log at error
// level, client errors at warn, health checks at debug.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// hijacked (websocket) or nothing written
				status = http.StatusOK
			}
			entry := logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(began),
				"remote":     r.RemoteAddr,
				"request_id": chimw.GetReqID(r.Context()),
			})
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("HTTP Request")
			case status >= http.StatusBadRequest:
				entry.Warn("HTTP Request")
			case r.URL.Path == "/health":
				entry.Debug("HTTP Request")
			default:
				entry.Info("HTTP Request")
			}
		})
	}
}

// SocketEntry is the log entry carried through one websocket's lifetime.
func SocketEntry(logger *logrus.Logger, r *http.Request, game string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"game":       game,
		"remote":     r.RemoteAddr,
		"request_id": chimw.GetReqID(r.Context()),
	})
}

// LogSocketClosed logs the end of a websocket; a nil err is a clean close.
func LogSocketClosed(entry *logrus.Entry, player string, opened time.Time, err error) {
	entry = entry.WithFields(logrus.Fields{"player": player, "connected_for": time.Since(opened).Round(time.Millisecond)})
	if err != nil {
		entry.WithError(err).Warn("WebSocket closed")
		return
	}
	entry.Info("WebSocket closed")
}

package cart

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-manzano/internal/common"
)

const (
	// SessionHeader carries the cart session for API clients.
	SessionHeader = common.SessionHeader
	// SessionCookie carries the cart session for browsers.
	SessionCookie = "elmanzano_cart"

	maxSessionLen = 128
)

// ValidSession reports whether id is usable as a cart session identifier.
func ValidSession(id string) bool {
	if id == "" || len(id) > maxSessionLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Sessions resolves the cart session of every request, issuing a new one when
// the client has none.
type Sessions struct {
	Secure bool
	MaxAge time.Duration
}

// Middleware stores the session on the request context and echoes it back.
func (s Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id != "" && !ValidSession(id) {
			common.JSONError(w, http.StatusBadRequest, "INVALID_SESSION", "invalid cart session", nil)
			return
		}
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil && ValidSession(c.Value) {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		maxAge := s.MaxAge
		if maxAge <= 0 {
			maxAge = 30 * 24 * time.Hour
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   int(maxAge.Seconds()),
			HttpOnly: true,
			Secure:   s.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(common.WithSessionID(r.Context(), id)))
	})
}

package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const SessionCookie = "sf_session"

// Session attaches a session id to every request, issuing a cookie when the client has none.
func Session(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if c, err := r.Cookie(SessionCookie); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					sid = c.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), sid)))
		})
	}
}

package web

import (
	"context"
	"net/http"

	"github.com/raicesdev/bienesraices/internal/auth"
)

// sessionCookieName is the cookie carrying the signed session token.
const sessionCookieName = "_token"

type ctxKey int

const claimsKey ctxKey = 0

// session is a middleware that verifies the session cookie and, when valid,
// stores the claims in the request context. Requests without a valid cookie
// pass through anonymously; route guards decide what that means.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := s.deps.Sessions.Verify(cookie.Value)
		if err != nil {
			// Invalid or expired token, get rid of the cookie.
			s.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFromCtx returns the session claims, if the request carried a valid
// session cookie.
func claimsFromCtx(ctx context.Context) (auth.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.SessionClaims)
	return claims, ok
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

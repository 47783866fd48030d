package web

import (
	"context"
	"net/http"

	"github.com/bcnelson/gateway-address-manager/internal/auth"
)

type contextKey string

const sessionContextKey contextKey = "session"

// sessionAuth is middleware that requires a live login session. htmx
// requests are sent to the login page with HX-Redirect instead of a 303
// that htmx would swap into the page.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Get(r)
		if err != nil {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getSession retrieves the session from context.
func getSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// page fills the per-request parts of PageData.
func (s *Server) page(r *http.Request, title, active string, content any) PageData {
	data := PageData{
		Title:   title,
		Active:  active,
		OIDC:    s.oidc != nil,
		Content: content,
	}
	if session := getSession(r.Context()); session != nil {
		data.User = session.DisplayName()
	}
	return data
}

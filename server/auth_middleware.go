package server

import (
	"net/http"
)

// RequireSessionAuth is middleware for pages that need a signed-in user.
// The session middleware has already validated the credentials against
// /auth/me; without a user the browser is sent to the login page.
func (s *Server) RequireSessionAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state, ok := authState(w, r)
			if !ok {
				return
			}
			if !state.IsAuthenticated() {
				redirectSuccess(w, r, RouteLogin)
				return
			}
			next(w, r)
		}
	}
}

// RedirectIfAuthenticated keeps signed-in users away from the login and
// register pages.
func (s *Server) RedirectIfAuthenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		if state.IsAuthenticated() {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		next(w, r)
	}
}

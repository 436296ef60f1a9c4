package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, pageIndex, http.StatusOK, newPageData(r))
	}
}

// DashboardHandler renders the signed-in user's profile. RequireSessionAuth
// guarantees a user.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, pageDashboard, http.StatusOK, newPageData(r))
	}
}

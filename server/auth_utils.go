package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-web/authstate"
	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/jrsteele09/go-auth-web/internal/i18n"
	"github.com/rs/zerolog/log"
)

const (
	// errorParam carries a message key to the page being redirected to
	errorParam = "error"
	// sessionExpiredKey is shown on the login page after a terminal refresh failure
	sessionExpiredKey = "session.expired"
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	path = i18n.FromContext(r.Context()).Path(path)
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects. messageKey is
// translated by the page it lands on.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, messageKey string) {
	fullPath := i18n.FromContext(r.Context()).Path(path) + "?" + errorParam + "=" + url.QueryEscape(messageKey)

	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", fullPath)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// handleSessionExpired sends the browser to the login page when err ends
// the session. It reports whether it wrote a response.
func handleSessionExpired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apperrors.Is(err, apperrors.ErrSessionExpired) {
		return false
	}
	log.Ctx(r.Context()).Info().Err(err).Msg("Session expired, redirecting to login")
	if state, stateErr := authstate.FromContext(r.Context()); stateErr == nil {
		state.Teardown()
	}
	redirectWithError(w, r, RouteLogin, sessionExpiredKey)
	return true
}

// authState returns the state set up by the session middleware. Handlers
// behind HTMLMiddleWare always have one.
func authState(w http.ResponseWriter, r *http.Request) (*authstate.State, bool) {
	state, err := authstate.FromContext(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Missing auth state")
		http.Error(w, i18n.FromContext(r.Context()).Get("errors.generic"), http.StatusInternalServerError)
		return nil, false
	}
	return state, true
}

// bannerFromQuery returns the translated ?error= message, ignoring anything
// that is not a known message key.
func bannerFromQuery(r *http.Request) string {
	key := r.URL.Query().Get(errorParam)
	t := i18n.FromContext(r.Context())
	if key == "" || !t.Has(key) {
		return ""
	}
	return t.Get(key)
}

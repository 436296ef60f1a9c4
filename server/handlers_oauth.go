package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-web/oauthcallback"
	"github.com/rs/zerolog/log"
)

// OAuthRedirectHandler sends the browser to the API, which runs the provider
// exchange and comes back to /auth/callback or /auth/error.
func (s *Server) OAuthRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		provider := r.PathValue("provider")
		target, err := state.Client().OAuthURL(provider)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Str("provider", provider).Msg("OAuth redirect refused")
			redirectWithError(w, r, RouteAuthError, string(oauthcallback.ReasonInvalidProvider))
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

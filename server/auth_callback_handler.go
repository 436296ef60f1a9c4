package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-web/oauthcallback"
	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler stores the credentials the API appends to the
// callback URL and shows the result before a timed redirect.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}

		outcome := oauthcallback.Process(oauthcallback.ParamsFromQuery(r.URL.Query()), state)
		if outcome.Err != nil {
			log.Ctx(r.Context()).Warn().Err(outcome.Err).Msg("OAuth callback failed")
		} else {
			log.Ctx(r.Context()).Info().Int("user_id", outcome.User.ID).Msg("OAuth sign-in completed")
		}

		data := newPageData(r)
		data.User = state.User
		data.Callback = &outcome
		data.Redirect = &TimedRedirect{URL: data.T.Path(outcome.RedirectTo), Delay: outcome.Delay}
		s.render(w, r, pageCallback, http.StatusOK, data)
	}
}

// OAuthErrorHandler explains a failed OAuth sign-in and counts down to the
// login page.
func (s *Server) OAuthErrorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errPage := oauthcallback.NewErrorPage(r.URL.Query())
		log.Ctx(r.Context()).Info().Str("reason", string(errPage.Reason)).Msg("OAuth error page")

		data := newPageData(r)
		data.ErrorPage = &errPage
		data.Redirect = &TimedRedirect{URL: data.T.Path(errPage.RedirectTo), Delay: errPage.Countdown}
		s.render(w, r, pageAuthError, http.StatusOK, data)
	}
}

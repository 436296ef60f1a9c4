package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-web/forms"
	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/rs/zerolog/log"
)

// LoginPageHandler displays the login page (GET /auth/login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := newPageData(r)
		data.Banner = bannerFromQuery(r)
		s.render(w, r, pageLogin, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "errors.generic")
			return
		}

		form := forms.LoginFormFromRequest(r)
		data := newPageData(r)
		data.Values["email"] = form.Email

		if errs := form.Validate(); len(errs) > 0 {
			data.setFormErrors(errs)
			s.render(w, r, pageLogin, http.StatusUnprocessableEntity, data)
			return
		}

		if _, err := state.Login(r.Context(), form.Data()); err != nil {
			if handleSessionExpired(w, r, err) {
				return
			}
			log.Ctx(r.Context()).Warn().Err(err).Str("email", form.Email).Msg("Login failed")
			s.renderAuthFailure(w, r, pageLogin, data, err, "login.loginFailed")
			return
		}

		log.Ctx(r.Context()).Info().Int("user_id", state.User.ID).Msg("User logged in")
		redirectSuccess(w, r, RouteDashboard)
	}
}

// LogoutHandler revokes the session on the API and always clears the
// credential cookies, whatever the API answers.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		state.Logout(r.Context())
		redirectSuccess(w, r, RouteLogin)
	}
}

// LogoutAllHandler revokes every session of the user.
func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		state.LogoutAll(r.Context())
		redirectSuccess(w, r, RouteLogin)
	}
}

// renderAuthFailure re-renders a form page after the API refused it. Field
// errors from the API are shown inline, anything else as a banner.
func (s *Server) renderAuthFailure(w http.ResponseWriter, r *http.Request, name string, data *PageData, err error, bannerKey string) {
	if fieldErrs := forms.FromAPIError(err); len(fieldErrs) > 0 {
		data.setFormErrors(fieldErrs)
		s.render(w, r, name, http.StatusUnprocessableEntity, data)
		return
	}

	status := http.StatusBadGateway
	var apiErr *apperrors.APIError
	if apperrors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError {
		status = apiErr.StatusCode
	}
	data.Banner = data.T.Get(bannerKey)
	s.render(w, r, name, status, data)
}

package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-web/forms"
	"github.com/jrsteele09/go-auth-web/users"
	"github.com/rs/zerolog/log"
)

// RegisterPageHandler renders the sign-up form
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := newPageData(r)
		data.Values["role"] = string(users.RoleStudent)
		data.OAuth.OrContinueWith = data.T.Get("register.orContinueWith")
		s.render(w, r, pageRegister, http.StatusOK, data)
	}
}

// RegisterSubmissionHandler validates the form locally and only then creates
// the account on the API.
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := authState(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, http.StatusBadRequest, "errors.generic")
			return
		}

		form := forms.RegisterFormFromRequest(r)
		data := newPageData(r)
		data.OAuth.OrContinueWith = data.T.Get("register.orContinueWith")
		data.Values["name"] = form.Name
		data.Values["email"] = form.Email
		data.Values["role"] = form.Role

		if errs := form.Validate(); len(errs) > 0 {
			data.setFormErrors(errs)
			s.render(w, r, pageRegister, http.StatusUnprocessableEntity, data)
			return
		}

		if _, err := state.Register(r.Context(), form.Data()); err != nil {
			if handleSessionExpired(w, r, err) {
				return
			}
			log.Ctx(r.Context()).Warn().Err(err).Str("email", form.Email).Msg("Registration failed")
			s.renderAuthFailure(w, r, pageRegister, data, err, "register.registrationFailed")
			return
		}

		log.Ctx(r.Context()).Info().Int("user_id", state.User.ID).Str("role", form.Role).Msg("User registered")
		redirectSuccess(w, r, RouteDashboard)
	}
}

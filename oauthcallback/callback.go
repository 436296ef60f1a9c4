package oauthcallback

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/jrsteele09/go-auth-web/users"
)

const (
	SuccessRedirect = "/dashboard"
	FailureRedirect = "/auth/login"
	SuccessDelay    = 1500 * time.Millisecond
	FailureDelay    = 3 * time.Second
)

// Status is the state of the OAuth callback: processing, then success or error.
type Status int

const (
	StatusProcessing Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen from s.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Params are the query parameters the API appends when it redirects back
// after a completed OAuth exchange.
type Params struct {
	AccessToken  string
	RefreshToken string
	User         string // base64 encoded JSON object
}

func ParamsFromQuery(q url.Values) Params {
	return Params{
		AccessToken:  q.Get("access_token"),
		RefreshToken: q.Get("refresh_token"),
		User:         q.Get("user"),
	}
}

// Completer stores the credentials of a successful callback.
type Completer interface {
	CompleteOAuth(access, refresh string, u *users.User)
}

// Outcome is the terminal result of a callback: what to show and where to
// send the browser after Delay.
type Outcome struct {
	Status     Status
	MessageKey string
	RedirectTo string
	Delay      time.Duration
	User       *users.User
	Err        error
}

type callback struct {
	params    Params
	completer Completer
	outcome   Outcome
}

type stateHandler func(*callback) Status

var handlers = map[Status]stateHandler{
	StatusProcessing: (*callback).processing,
	StatusSuccess:    (*callback).success,
	StatusError:      (*callback).failure,
}

// Process runs the callback state machine to a terminal state. Credentials
// are handed to completer only on success.
func Process(params Params, completer Completer) Outcome {
	cb := &callback{params: params, completer: completer}
	status := StatusProcessing
	for {
		cb.outcome.Status = status
		next := handlers[status](cb)
		if next == status && status.Terminal() {
			return cb.outcome
		}
		status = next
	}
}

func (cb *callback) processing() Status {
	p := cb.params
	if p.AccessToken == "" || p.RefreshToken == "" || p.User == "" {
		cb.outcome.MessageKey = "callback.missingParameters"
		cb.outcome.Err = apperrors.Wrapf(apperrors.ErrInvalidCallback, "missing parameters")
		return StatusError
	}

	u, err := DecodeUser(p.User)
	if err != nil {
		cb.outcome.MessageKey = "callback.processingFailed"
		cb.outcome.Err = err
		return StatusError
	}
	cb.outcome.User = u
	return StatusSuccess
}

func (cb *callback) success() Status {
	cb.completer.CompleteOAuth(cb.params.AccessToken, cb.params.RefreshToken, cb.outcome.User)
	cb.outcome.MessageKey = "callback.success"
	cb.outcome.RedirectTo = SuccessRedirect
	cb.outcome.Delay = SuccessDelay
	return StatusSuccess
}

func (cb *callback) failure() Status {
	cb.outcome.RedirectTo = FailureRedirect
	cb.outcome.Delay = FailureDelay
	return StatusError
}

// DecodeUser decodes the base64 encoded JSON object carried in the user
// parameter. Fields that do not match the profile shape are ignored.
func DecodeUser(encoded string) (*users.User, error) {
	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCallback, "user is not base64: %v", err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCallback, "user is not a JSON object")
	}

	u := &users.User{}
	_ = json.Unmarshal(raw, u)
	return u, nil
}

func decodeBase64(s string) ([]byte, error) {
	// A '+' may arrive as a space when the query was not escaped.
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

package oauthcallback

import (
	"net/url"
	"time"
)

// ErrorPageDelay is the countdown shown on the OAuth error page before the
// browser is sent to the login page.
const ErrorPageDelay = 5 * time.Second

// Reason is the error code the API sends to /auth/error.
type Reason string

const (
	ReasonInvalidProvider Reason = "invalid_provider"
	ReasonOAuthFailed     Reason = "oauth_failed"
	ReasonAccessDenied    Reason = "access_denied"
	ReasonUnknown         Reason = "unknown_error"
)

var reasonKeys = map[Reason]string{
	ReasonInvalidProvider: "invalidProvider",
	ReasonOAuthFailed:     "oauthFailed",
	ReasonAccessDenied:    "accessDenied",
	ReasonUnknown:         "unknownError",
}

// ParseReason maps anything unrecognised to ReasonUnknown.
func ParseReason(s string) Reason {
	r := Reason(s)
	if _, ok := reasonKeys[r]; ok {
		return r
	}
	return ReasonUnknown
}

func (r Reason) TitleKey() string {
	return "error." + reasonKeys[ParseReason(string(r))]
}

func (r Reason) DescriptionKey() string {
	return r.TitleKey() + "Description"
}

// ErrorPage describes the OAuth error page.
type ErrorPage struct {
	Reason     Reason
	Details    string // free text from the message parameter, may be empty
	RedirectTo string
	Countdown  time.Duration
}

func NewErrorPage(q url.Values) ErrorPage {
	return ErrorPage{
		Reason:     ParseReason(q.Get("error")),
		Details:    q.Get("message"),
		RedirectTo: FailureRedirect,
		Countdown:  ErrorPageDelay,
	}
}

// CountdownSeconds is the whole number of seconds shown to the user.
func (p ErrorPage) CountdownSeconds() int {
	return int(p.Countdown / time.Second)
}

package authapi

import (
	"github.com/jrsteele09/go-auth-web/gateway"
	"github.com/jrsteele09/go-auth-web/users"
)

// Provider identifies an OAuth identity provider the API can redirect to.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// Providers lists the OAuth providers offered on the login and register pages.
var Providers = []Provider{ProviderGoogle, ProviderGitHub}

// ParseProvider returns the Provider named by s.
func ParseProvider(s string) (Provider, bool) {
	for _, p := range Providers {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// AuthResponse is returned by the login and register endpoints.
type AuthResponse struct {
	Message      string      `json:"message"`
	User         *users.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"` // seconds
}

// RefreshTokenResponse is returned by POST /auth/refresh.
type RefreshTokenResponse = gateway.RefreshResponse

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	User *users.User `json:"user"`
}

type RegisterData struct {
	Name                 string         `json:"name"`
	Email                string         `json:"email"`
	Password             string         `json:"password"`
	PasswordConfirmation string         `json:"password_confirmation"`
	Role                 users.RoleType `json:"role,omitempty"`
}

type LoginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MessageResponse is the body of the logout endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

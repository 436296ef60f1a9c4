package sessions

import (
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the pair of tokens issued when a login, registration or
// OAuth flow completes. AccessTTL is always shorter than RefreshTTL.
type Credentials struct {
	AccessToken  string        // Short-lived bearer token sent on API calls
	RefreshToken string        // Longer-lived token exchanged for a new access token
	AccessTTL    time.Duration // How long the access token is kept
	RefreshTTL   time.Duration // How long the refresh token is kept
}

// Store persists the two credentials with independent lifetimes.
type Store interface {
	// AccessToken returns the current access credential, "" when absent or expired.
	AccessToken() string
	// RefreshToken returns the current refresh credential, "" when absent or expired.
	RefreshToken() string
	// Write sets both credentials.
	Write(c Credentials)
	// SetAccessToken replaces the access credential and leaves the refresh credential untouched.
	SetAccessToken(token string, ttl time.Duration)
	// Clear removes both credentials.
	Clear()
}

// Token returns the credentials held by store as an oauth2 token.
// It returns nil when no access credential is stored.
func Token(store Store) *oauth2.Token {
	access := store.AccessToken()
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: store.RefreshToken(),
	}
}

// HasSession reports whether either credential is present.
func HasSession(store Store) bool {
	return store.AccessToken() != "" || store.RefreshToken() != ""
}

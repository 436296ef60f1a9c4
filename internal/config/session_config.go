package config

import (
	"fmt"
	"time"
)

type SessionConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetSecureCookies() bool
}

// Session describes how the two credentials are kept in the browser.
type Session struct {
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"` // 30 days
	AccessCookieName  string        `env:"ACCESS_COOKIE_NAME" envDefault:"access_token"`
	RefreshCookieName string        `env:"REFRESH_COOKIE_NAME" envDefault:"refresh_token"`

	production bool
}

var _ SessionConfig = Session{}

func (s Session) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenTTL
}

func (s Session) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTokenTTL
}

func (s Session) GetAccessCookieName() string {
	return s.AccessCookieName
}

func (s Session) GetRefreshCookieName() string {
	return s.RefreshCookieName
}

// GetSecureCookies reports whether cookies are HTTPS only; true in production.
func (s Session) GetSecureCookies() bool {
	return s.production
}

func (s Session) validate() error {
	if s.AccessTokenTTL <= 0 {
		return fmt.Errorf("access token ttl must be positive, got %s", s.AccessTokenTTL)
	}
	if s.AccessTokenTTL >= s.RefreshTokenTTL {
		return fmt.Errorf("access token ttl (%s) must be shorter than refresh token ttl (%s)", s.AccessTokenTTL, s.RefreshTokenTTL)
	}
	if s.AccessCookieName == "" || s.RefreshCookieName == "" || s.AccessCookieName == s.RefreshCookieName {
		return fmt.Errorf("access and refresh cookie names must be distinct and non-empty")
	}
	return nil
}

package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpiryFromJWT returns the exp claim of a JWT without verifying its signature.
// The API is the authority on validity; the value is only used to size cookies.
func ExpiryFromJWT(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// AccessLifetime picks how long an access credential should be kept.
// expiresIn (seconds, as sent by the API) wins, then the JWT exp claim; the
// result never exceeds maxTTL and falls back to maxTTL when nothing is known.
func AccessLifetime(raw string, expiresIn int, maxTTL time.Duration) time.Duration {
	ttl := maxTTL
	if expiresIn > 0 {
		// Compare in seconds; a large expires_in overflows time.Duration.
		if int64(expiresIn) <= int64(maxTTL/time.Second) {
			ttl = time.Duration(expiresIn) * time.Second
		}
	} else if exp, ok := ExpiryFromJWT(raw); ok {
		ttl = exp.Sub(NowTimeFunc())
		if ttl <= 0 {
			// Already expired: keep it briefly so the gateway can refresh it.
			ttl = time.Minute
		}
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}

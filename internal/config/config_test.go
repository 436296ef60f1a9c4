package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-web/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8000/api", c.GetAPIURL())
	require.Equal(t, time.Hour, c.GetAccessTokenTTL())
	require.Equal(t, 30*24*time.Hour, c.GetRefreshTokenTTL())
	require.Equal(t, "access_token", c.GetAccessCookieName())
	require.Equal(t, "refresh_token", c.GetRefreshCookieName())
	require.False(t, c.GetSecureCookies())
	require.True(t, c.GetEnableRateLimiting())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Empty(t, c.GetTrustedProxies())
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("API_URL", "https://api.example.com/api/")
	t.Setenv("ENV", "production")
	t.Setenv("BASE_URL", "https://app.example.com/")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,172.16.0.0/12")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "https://api.example.com/api", c.GetAPIURL())
	require.True(t, c.IsProduction())
	require.True(t, c.GetSecureCookies())
	require.Equal(t, "https://app.example.com", c.GetBaseURL())
	require.Equal(t, []string{"10.0.0.1", "172.16.0.0/12"}, c.GetTrustedProxies())
}

func TestNew_AccessMustExpireBeforeRefresh(t *testing.T) {
	t.Run("equal lifetimes", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "2h")
		t.Setenv("REFRESH_TOKEN_TTL", "2h")
		_, err := config.New()
		require.Error(t, err)
		require.Contains(t, err.Error(), "must be shorter")
	})

	t.Run("same cookie names", func(t *testing.T) {
		t.Setenv("ACCESS_COOKIE_NAME", "token")
		t.Setenv("REFRESH_COOKIE_NAME", "token")
		_, err := config.New()
		require.Error(t, err)
	})
}

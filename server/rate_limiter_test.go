package server

import (
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter_PerIP(t *testing.T) {
	rl := newRateLimiter(rate.Every(time.Hour), 2)

	require.True(t, rl.Allow("10.0.0.1"))
	require.True(t, rl.Allow("10.0.0.1"))
	require.False(t, rl.Allow("10.0.0.1"))

	require.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := newRateLimiter(rate.Every(time.Hour), 1)
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")

	rl.cleanup(time.Now())
	require.Len(t, rl.limiters, 2)

	rl.cleanup(time.Now().Add(limiterIdleTimeout + time.Second))
	require.Empty(t, rl.limiters)

	// A forgotten IP starts with a full burst again.
	require.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_CloseStopsCleanup(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1)
	rl.Close()
	rl.Close()

	select {
	case <-rl.stop:
	default:
		t.Fatal("stop channel not closed")
	}
	// The limiter keeps answering after Close.
	require.True(t, rl.Allow("10.0.0.1"))
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := parseTrustedProxies([]string{" 10.0.0.1 ", "", "172.16.5.0/12", "::ffff:192.0.2.7"})
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.1/32"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.0.2.7/32"),
	}, prefixes)

	_, err = parseTrustedProxies([]string{"10.0.0.0/33"})
	require.Error(t, err)
	_, err = parseTrustedProxies([]string{"proxy.internal"})
	require.Error(t, err)
}

func TestClientIP(t *testing.T) {
	trusted, err := parseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		trusted []netip.Prefix
		want    string
	}{
		{
			name:   "direct peer",
			remote: "192.0.2.10:5555",
			want:   "192.0.2.10",
		},
		{
			name:    "untrusted peer cannot set forwarded for",
			remote:  "192.0.2.10:5555",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "198.51.100.7"},
			trusted: trusted,
			want:    "192.0.2.10",
		},
		{
			name:    "no trusted proxies configured",
			remote:  "10.0.0.5:5555",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1"},
			want:    "10.0.0.5",
		},
		{
			name:    "trusted proxy",
			remote:  "10.0.0.5:5555",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1"},
			trusted: trusted,
			want:    "203.0.113.1",
		},
		{
			name:    "rightmost untrusted hop wins",
			remote:  "10.0.0.5:5555",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.9, 203.0.113.1, 10.0.0.2"},
			trusted: trusted,
			want:    "203.0.113.1",
		},
		{
			name:    "real ip from trusted proxy",
			remote:  "10.0.0.5:5555",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			trusted: trusted,
			want:    "198.51.100.7",
		},
		{
			name:    "malformed forwarded for falls back",
			remote:  "10.0.0.5:5555",
			headers: map[string]string{"X-Forwarded-For": "unknown"},
			trusted: trusted,
			want:    "10.0.0.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tt.want, clientIP(r, tt.trusted))
		})
	}
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/jrsteele09/go-auth-web/sessions"
	"github.com/jrsteele09/go-auth-web/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultAccessTTL = time.Hour
	maxErrorBody     = 1 << 20
)

// Gateway wraps outbound calls to the authentication API. It attaches the
// stored access credential as a bearer token and, on a 401, refreshes the
// access credential once and re-issues the request.
//
// Gateway implements http.RoundTripper; Client returns an *http.Client using it.
type Gateway struct {
	baseURL   string
	store     sessions.Store
	base      http.RoundTripper
	client    *http.Client
	refresher Refresher
	accessTTL time.Duration
	group     *singleflight.Group
	timeout   time.Duration
}

var _ http.RoundTripper = (*Gateway)(nil)

// Option defines a function type to modify the Gateway instance.
type Option func(*Gateway)

// WithBaseTransport sets the transport used for the actual network calls.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.base = rt
	}
}

// WithTimeout sets the overall timeout of a call, retry included.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithRefresher replaces the default refresher that calls POST /auth/refresh.
func WithRefresher(r Refresher) Option {
	return func(g *Gateway) {
		g.refresher = r
	}
}

// WithAccessTTL caps how long a refreshed access credential is stored.
func WithAccessTTL(d time.Duration) Option {
	return func(g *Gateway) {
		g.accessTTL = d
	}
}

// WithRefreshGroup shares a singleflight group between gateways so that
// concurrent refreshes of the same refresh credential result in one API call.
func WithRefreshGroup(group *singleflight.Group) Option {
	return func(g *Gateway) {
		g.group = group
	}
}

// New creates a gateway for the API at baseURL using store for credentials.
func New(baseURL string, store sessions.Store, options ...Option) *Gateway {
	g := &Gateway{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		store:     store,
		base:      http.DefaultTransport,
		accessTTL: defaultAccessTTL,
		timeout:   defaultTimeout,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.group == nil {
		g.group = &singleflight.Group{}
	}
	if g.refresher == nil {
		g.refresher = NewAPIRefresher(g.baseURL, &http.Client{Transport: g.base, Timeout: g.timeout})
	}
	g.client = &http.Client{Transport: g, Timeout: g.timeout}
	return g
}

// Client returns an http.Client whose requests go through the gateway.
func (g *Gateway) Client() *http.Client {
	return g.client
}

// Store returns the credential store the gateway reads and updates.
func (g *Gateway) Store() sessions.Store {
	return g.store
}

// URL joins path onto the API base URL.
func (g *Gateway) URL(path string) string {
	return g.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// RoundTrip sends req with the current access credential. A 401 on a request
// that has not been retried triggers a single refresh-and-retry cycle. When no
// refresh credential exists or the refresh fails, both credentials are cleared
// and an error wrapping ErrSessionExpired is returned.
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if tok := sessions.Token(g.store); tok != nil {
		tok.SetAuthHeader(out)
	}
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", "application/json")
	}

	resp, err := g.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || IsRetried(req.Context()) {
		return resp, nil
	}
	drain(resp.Body)

	ctx := withRetried(req.Context())
	logger := log.Ctx(ctx)
	if _, err := g.Refresh(ctx); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			// The caller went away; its credentials were never rejected.
			return nil, fmt.Errorf("[gateway RoundTrip] refresh abandoned: %w", ctxErr)
		}
		logger.Warn().Err(err).Str("path", req.URL.Path).Msg("Access token refresh failed, clearing session")
		g.store.Clear()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, err)
	}

	retry := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, fmt.Errorf("[gateway RoundTrip] cannot replay body of %s %s", req.Method, req.URL.Path)
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("[gateway RoundTrip] replay body: %w", err)
		}
		retry.Body = body
	}
	logger.Debug().Str("path", req.URL.Path).Msg("Retrying request with refreshed access token")
	return g.RoundTrip(retry)
}

// Refresh exchanges the stored refresh credential for a new access credential
// and stores it. The refresh credential itself is never modified.
func (g *Gateway) Refresh(ctx context.Context) (*RefreshResponse, error) {
	refreshToken := g.store.RefreshToken()
	if refreshToken == "" {
		return nil, apperrors.ErrNoRefreshToken
	}

	// The call is shared with every request holding the same refresh
	// credential, so it must not inherit the cancellation of whichever
	// request started it.
	ch := g.group.DoChan(refreshToken, func() (interface{}, error) {
		shared, cancel := g.sharedContext(ctx)
		defer cancel()
		return g.refresher.Refresh(shared, refreshToken)
	})

	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-ch:
	}
	if result.Err != nil {
		return nil, result.Err
	}
	res, ok := result.Val.(*RefreshResponse)
	if !ok || res == nil || res.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", apperrors.ErrRefreshFailed)
	}

	g.store.SetAccessToken(res.AccessToken, token.AccessLifetime(res.AccessToken, res.ExpiresIn, g.accessTTL))
	return res, nil
}

// sharedContext keeps the values of ctx, such as the request logger, and
// bounds the call by the gateway timeout instead of the caller's lifetime.
func (g *Gateway) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if g.timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, g.timeout)
}

// DoJSON sends in as a JSON body (when not nil) to path and decodes a 2xx
// response into out (when not nil). Non-2xx responses are returned as
// *errors.APIError.
func (g *Gateway) DoJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[gateway DoJSON] encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.URL(path), body)
	if err != nil {
		return fmt.Errorf("[gateway DoJSON] new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("[gateway DoJSON] %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", apperrors.ErrUnexpectedResponse, method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apperrors.APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}

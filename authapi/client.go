package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-web/gateway"
	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
)

const (
	registerPath  = "/auth/register"
	loginPath     = "/auth/login"
	logoutPath    = "/auth/logout"
	logoutAllPath = "/auth/logout-all"
	mePath        = "/auth/me"
)

// Client calls the authentication endpoints of the API through a gateway.
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a client whose calls carry the credentials held by gw.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Register creates an account. POST /auth/register
func (c *Client) Register(ctx context.Context, data RegisterData) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.gw.DoJSON(gateway.WithoutRefresh(ctx), http.MethodPost, registerPath, data, &res); err != nil {
		return nil, apperrors.Wrapf(err, "[Client Register]")
	}
	return &res, nil
}

// Login authenticates with email and password. POST /auth/login
func (c *Client) Login(ctx context.Context, data LoginData) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.gw.DoJSON(gateway.WithoutRefresh(ctx), http.MethodPost, loginPath, data, &res); err != nil {
		return nil, apperrors.Wrapf(err, "[Client Login]")
	}
	return &res, nil
}

// Logout revokes the current access credential. POST /auth/logout
func (c *Client) Logout(ctx context.Context) (*MessageResponse, error) {
	var res MessageResponse
	if err := c.gw.DoJSON(ctx, http.MethodPost, logoutPath, nil, &res); err != nil {
		return nil, apperrors.Wrapf(err, "[Client Logout]")
	}
	return &res, nil
}

// LogoutAll revokes every credential issued to the user. POST /auth/logout-all
func (c *Client) LogoutAll(ctx context.Context) (*MessageResponse, error) {
	var res MessageResponse
	if err := c.gw.DoJSON(ctx, http.MethodPost, logoutAllPath, nil, &res); err != nil {
		return nil, apperrors.Wrapf(err, "[Client LogoutAll]")
	}
	return &res, nil
}

// Me returns the authenticated user. GET /auth/me
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var res MeResponse
	if err := c.gw.DoJSON(ctx, http.MethodGet, mePath, nil, &res); err != nil {
		return nil, apperrors.Wrapf(err, "[Client Me]")
	}
	if res.User == nil {
		return nil, fmt.Errorf("[Client Me] %w: no user in response", apperrors.ErrUnexpectedResponse)
	}
	return &res, nil
}

// Refresh renews the access credential ahead of expiry. The gateway already
// does this on a 401. POST /auth/refresh
func (c *Client) Refresh(ctx context.Context) (*RefreshTokenResponse, error) {
	res, err := c.gw.Refresh(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Client Refresh]")
	}
	return res, nil
}

// OAuthURL returns the API address that starts the OAuth flow for provider.
// The browser is redirected there; the API redirects on to the provider.
func (c *Client) OAuthURL(provider string) (string, error) {
	p, ok := ParseProvider(provider)
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrInvalidProvider, "[Client OAuthURL] %q", provider)
	}
	return c.gw.URL("/auth/" + string(p)), nil
}

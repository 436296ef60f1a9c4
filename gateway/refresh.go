package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
)

// RefreshPath is the API endpoint exchanging a refresh credential for a new access credential.
const RefreshPath = "/auth/refresh"

// RefreshResponse is returned by POST /auth/refresh.
type RefreshResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Refresher exchanges a refresh credential for a new access credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error)
}

// APIRefresher calls the API refresh endpoint directly, bypassing the gateway
// so that a failing refresh can never trigger another refresh.
type APIRefresher struct {
	url    string
	client *http.Client
}

var _ Refresher = (*APIRefresher)(nil)

// NewAPIRefresher creates a refresher for the API at baseURL.
func NewAPIRefresher(baseURL string, client *http.Client) *APIRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &APIRefresher{
		url:    strings.TrimSuffix(baseURL, "/") + RefreshPath,
		client: client,
	}
}

func (r *APIRefresher) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("[APIRefresher Refresh] new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, decodeAPIError(resp))
	}

	var out RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", apperrors.ErrRefreshFailed, err)
	}
	return &out, nil
}

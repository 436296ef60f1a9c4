package authstate

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-web/authapi"
	"github.com/jrsteele09/go-auth-web/gateway"
	apperrors "github.com/jrsteele09/go-auth-web/internal/errors"
	"github.com/jrsteele09/go-auth-web/sessions"
	"github.com/jrsteele09/go-auth-web/token"
	"github.com/jrsteele09/go-auth-web/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Provider builds the per-request authentication State. It holds what is
// shared between requests: the API location, lifetimes and the refresh group.
type Provider struct {
	apiURL     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	timeout    time.Duration
	transport  http.RoundTripper
	group      *singleflight.Group
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

// WithTransport sets the transport used for API calls.
func WithTransport(rt http.RoundTripper) ProviderOption {
	return func(p *Provider) {
		p.transport = rt
	}
}

// WithTimeout sets the timeout of each API call.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = d
	}
}

// NewProvider creates a Provider for the API at apiURL. Credentials are kept
// for accessTTL and refreshTTL respectively.
func NewProvider(apiURL string, accessTTL, refreshTTL time.Duration, options ...ProviderOption) *Provider {
	p := &Provider{
		apiURL:     apiURL,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		timeout:    10 * time.Second,
		transport:  http.DefaultTransport,
		group:      &singleflight.Group{},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Gateway returns a gateway bound to store.
func (p *Provider) Gateway(store sessions.Store) *gateway.Gateway {
	return gateway.New(p.apiURL, store,
		gateway.WithBaseTransport(p.transport),
		gateway.WithTimeout(p.timeout),
		gateway.WithAccessTTL(p.accessTTL),
		gateway.WithRefreshGroup(p.group),
	)
}

// Init runs the startup check for one request. Without an access credential
// the State is anonymous. Otherwise the user is fetched from GET /auth/me; a
// failure clears both credentials and leaves the State anonymous.
func (p *Provider) Init(ctx context.Context, store sessions.Store) *State {
	gw := p.Gateway(store)
	s := &State{
		client:     authapi.NewClient(gw),
		store:      store,
		accessTTL:  p.accessTTL,
		refreshTTL: p.refreshTTL,
	}
	if store.AccessToken() == "" {
		return s
	}

	res, err := s.client.Me(ctx)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("Stored access token rejected, clearing session")
		store.Clear()
		return s
	}
	s.User = res.User
	return s
}

// State is the authentication state of a single browser request: the
// signed-in user, if any, and the operations that change it.
type State struct {
	User *users.User

	client     *authapi.Client
	store      sessions.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (s *State) IsAuthenticated() bool {
	return s != nil && s.User != nil
}

// Client returns the API client carrying this request's credentials.
func (s *State) Client() *authapi.Client {
	return s.client
}

// Login authenticates with email and password and stores the issued credentials.
func (s *State) Login(ctx context.Context, data authapi.LoginData) (*users.User, error) {
	res, err := s.client.Login(ctx, data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[State Login]")
	}
	s.complete(ctx, res)
	return s.User, nil
}

// Register creates an account and stores the issued credentials.
func (s *State) Register(ctx context.Context, data authapi.RegisterData) (*users.User, error) {
	if data.Role == "" {
		data.Role = users.RoleStudent
	}
	res, err := s.client.Register(ctx, data)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[State Register]")
	}
	s.complete(ctx, res)
	return s.User, nil
}

// CompleteOAuth stores the credentials delivered to the OAuth callback.
func (s *State) CompleteOAuth(access, refresh string, u *users.User) {
	s.store.Write(sessions.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    token.AccessLifetime(access, 0, s.accessTTL),
		RefreshTTL:   s.refreshTTL,
	})
	s.User = u
}

func (s *State) complete(ctx context.Context, res *authapi.AuthResponse) {
	refresh := res.RefreshToken
	if refresh == "" {
		// The API does not always issue a refresh token on password login.
		log.Ctx(ctx).Warn().Msg("No refresh token in auth response, using the access token in its place")
		refresh = res.AccessToken
	}
	s.store.Write(sessions.Credentials{
		AccessToken:  res.AccessToken,
		RefreshToken: refresh,
		AccessTTL:    token.AccessLifetime(res.AccessToken, res.ExpiresIn, s.accessTTL),
		RefreshTTL:   s.refreshTTL,
	})
	s.User = res.User
}

// Logout revokes the current credential on the API. A failing API call is
// logged and never returned; local credentials are always cleared.
func (s *State) Logout(ctx context.Context) {
	if _, err := s.client.Logout(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Logout API call failed")
	}
	s.Teardown()
}

// LogoutAll revokes every credential of the user on the API, then clears
// local credentials regardless of the outcome.
func (s *State) LogoutAll(ctx context.Context) {
	if _, err := s.client.LogoutAll(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Logout all API call failed")
	}
	s.Teardown()
}

// Teardown clears the stored credentials and forgets the user.
func (s *State) Teardown() {
	s.store.Clear()
	s.User = nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the State stored by NewContext. Without one it returns
// ErrNoAuthState: the caller runs outside the session middleware.
func FromContext(ctx context.Context) (*State, error) {
	s, ok := ctx.Value(contextKey{}).(*State)
	if !ok || s == nil {
		return nil, apperrors.ErrNoAuthState
	}
	return s, nil
}

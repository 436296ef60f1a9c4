package server

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/jrsteele09/go-auth-web/authstate"
	"github.com/jrsteele09/go-auth-web/internal/config"
	"github.com/jrsteele09/go-auth-web/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	auth     *authstate.Provider
	cookies  sessions.CookieOptions
	limiter  *RateLimiter
	pages    map[string]*page
	quietLog bool

	trustedProxies []netip.Prefix
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithAuthProvider replaces the provider built from the configuration, for
// example to call the API through a test transport.
func WithAuthProvider(p *authstate.Provider) Option {
	return func(s *Server) {
		s.auth = p
	}
}

// WithRateLimiter replaces the limiter applied to form submissions.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithoutRouteLog stops the route table being printed at startup.
func WithoutRouteLog() Option {
	return func(s *Server) {
		s.quietLog = true
	}
}

func New(config config.Config, options ...Option) (*Server, error) {
	s := &Server{
		env:    config.GetEnv(),
		mux:    http.NewServeMux(),
		config: config,
		cookies: sessions.CookieOptions{
			AccessName:  config.GetAccessCookieName(),
			RefreshName: config.GetRefreshCookieName(),
			Secure:      config.GetSecureCookies(),
			Path:        "/",
		},
	}
	for _, opt := range options {
		opt(s)
	}

	trusted, err := parseTrustedProxies(config.GetTrustedProxies())
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.trustedProxies = trusted

	if s.auth == nil {
		s.auth = authstate.NewProvider(config.GetAPIURL(), config.GetAccessTokenTTL(), config.GetRefreshTokenTTL(),
			authstate.WithTimeout(config.GetAPITimeout()))
	}
	if s.limiter == nil && config.GetEnableRateLimiting() {
		s.limiter = NewRateLimiter(rate.Limit(config.GetFormRatePerSecond()), config.GetFormRateBurst())
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}
	s.pages = pages

	s.initRoutes()
	s.handler = s.LocaleMiddleware(s.mux)
	if !s.quietLog {
		s.logRoutes()
	}

	log.Info().Str("api", config.GetAPIURL()).Str("base_url", config.GetBaseURL()).Str("env", s.env).Msg("Server initialised")
	return s, nil
}

// Close releases background resources. The server must not serve requests
// afterwards.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered route patterns in registration order.
func (s *Server) Routes() []string {
	routes := make([]string, len(s.routes))
	copy(routes, s.routes)
	return routes
}

func (s *Server) isDev() bool {
	return strings.EqualFold(s.env, "DEV")
}

func (s *Server) logRoutes() {
	if !s.isDev() {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

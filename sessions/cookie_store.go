package sessions

import (
	"net/http"
	"sync"
	"time"
)

// CookieOptions configures the cookies written by a CookieStore.
type CookieOptions struct {
	AccessName  string
	RefreshName string
	Secure      bool // HTTPS only, set in production
	Path        string
}

// CookieStore keeps the credentials as browser cookies. One CookieStore is
// bound to a single request/response pair; values written during the request
// are visible to later reads in the same request.
type CookieStore struct {
	w    http.ResponseWriter
	opts CookieOptions

	mu      sync.Mutex
	access  string
	refresh string
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore reads the current credentials from r and writes changes to w.
func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	if opts.Path == "" {
		opts.Path = "/"
	}
	s := &CookieStore{w: w, opts: opts}
	if c, err := r.Cookie(opts.AccessName); err == nil {
		s.access = c.Value
	}
	if c, err := r.Cookie(opts.RefreshName); err == nil {
		s.refresh = c.Value
	}
	return s
}

func (s *CookieStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *CookieStore) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *CookieStore) Write(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = c.AccessToken
	s.refresh = c.RefreshToken
	s.setCookie(s.opts.AccessName, c.AccessToken, c.AccessTTL)
	s.setCookie(s.opts.RefreshName, c.RefreshToken, c.RefreshTTL)
}

func (s *CookieStore) SetAccessToken(token string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = token
	s.setCookie(s.opts.AccessName, token, ttl)
}

func (s *CookieStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.setCookie(s.opts.AccessName, "", -1)
	s.setCookie(s.opts.RefreshName, "", -1)
}

// setCookie writes a cookie; a negative ttl deletes it.
func (s *CookieStore) setCookie(name, value string, ttl time.Duration) {
	// Round up: a sub-second ttl must not become MaxAge 0, a browser-session cookie.
	maxAge := int((ttl + time.Second - 1) / time.Second)
	if ttl < 0 || value == "" {
		maxAge = -1
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.opts.Path,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge > 0 {
		c.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	http.SetCookie(s.w, c)
}

package sessions

import (
	"sync"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) get(now time.Time) string {
	if e.value == "" || !now.Before(e.expiresAt) {
		return ""
	}
	return e.value
}

// MemoryStore is an in-process Store for callers without a browser, such as
// API clients run from the command line and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	access  entry
	refresh entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access.get(NowTimeFunc())
}

func (m *MemoryStore) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh.get(NowTimeFunc())
}

func (m *MemoryStore) Write(c Credentials) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := NowTimeFunc()
	m.access = entry{value: c.AccessToken, expiresAt: now.Add(c.AccessTTL)}
	m.refresh = entry{value: c.RefreshToken, expiresAt: now.Add(c.RefreshTTL)}
}

func (m *MemoryStore) SetAccessToken(token string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = entry{value: token, expiresAt: NowTimeFunc().Add(ttl)}
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = entry{}
	m.refresh = entry{}
}

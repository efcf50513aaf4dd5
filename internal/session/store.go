package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Provider names the backend a token belongs to. Tokens of different providers are never merged.
type Provider string

const (
	ProviderPrimary Provider = "primary"
	ProviderHosted  Provider = "hosted"
)

var ErrNoToken = errors.New("no session token")

type TokenStore interface {
	Get(ctx context.Context, sessionID string, p Provider) (string, error)
	Set(ctx context.Context, sessionID string, p Provider, token string) error
	Delete(ctx context.Context, sessionID string, p Provider) error
}

type memoryEntry struct {
	token   string
	expires time.Time
}

type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time
	m   map[string]memoryEntry
}

// NewMemoryStore keeps tokens in process. ttl <= 0 means tokens never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, m: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string, p Provider) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(sessionID, p)
	e, ok := s.m[k]
	if !ok {
		return "", ErrNoToken
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.m, k)
		return "", ErrNoToken
	}
	return e.token, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, p Provider, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{token: token}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.m[key(sessionID, p)] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string, p Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key(sessionID, p))
	return nil
}

func key(sessionID string, p Provider) string {
	return "session:" + sessionID + ":" + string(p)
}

// Package session stores the per-browser-session flags of the site, such as
// whether the terminal intro has already played.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ckwame-jpg/portfolio/clock"
)

// CookieName is the browser-session cookie carrying the session id.
const CookieName = "sid"

// DefaultTTL bounds how long a flag outlives its last write. Browser
// sessions normally end well before this.
const DefaultTTL = 24 * time.Hour

// Store records per-session flags.
type Store interface {
	IntroPlayed(ctx context.Context, id string) (bool, error)
	MarkIntroPlayed(ctx context.Context, id string) error
	Close() error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id issued by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// MemoryStore keeps flags in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	clock  clock.Clock
	played map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		ttl:    DefaultTTL,
		clock:  clk,
		played: make(map[string]time.Time),
	}
}

func (s *MemoryStore) IntroPlayed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.played[id]
	if !ok {
		return false, nil
	}
	if s.clock.Now().Sub(at) > s.ttl {
		delete(s.played, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) MarkIntroPlayed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played[id] = s.clock.Now()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

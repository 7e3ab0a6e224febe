package search

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/flight-booking/internal/model"
)

// DefaultTTL is how long search results stay fresh.
const DefaultTTL = 5 * time.Minute

// Store maps a query fingerprint to a cached result set.  Implementations
// must treat an entry as absent once its TTL has elapsed and must overwrite
// unconditionally on Put.
type Store interface {
	Get(ctx context.Context, key string) ([]model.NormalizedFlight, bool, error)
	Put(ctx context.Context, key string, value []model.NormalizedFlight, ttl time.Duration) error
}

type entry struct {
	value     []model.NormalizedFlight
	expiresAt time.Time
}

// MemoryStore is a single-process TTL cache.  Expired entries are evicted
// lazily on lookup; nothing sweeps in the background and no capacity bound
// is enforced.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests drive expiry.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: now}
}

// Get returns a copy of the value stored under key while now < expiresAt.
// A lookup that finds an expired entry deletes it.
func (s *MemoryStore) Get(_ context.Context, key string) ([]model.NormalizedFlight, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	out := make([]model.NormalizedFlight, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Put stores a copy of value with expiresAt = now + ttl, replacing any
// previous entry for key.
func (s *MemoryStore) Put(_ context.Context, key string, value []model.NormalizedFlight, ttl time.Duration) error {
	cp := append([]model.NormalizedFlight(nil), value...)
	s.mu.Lock()
	s.entries[key] = entry{value: cp, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Len reports the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

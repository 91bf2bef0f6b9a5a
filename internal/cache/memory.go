package cache

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store backed by a map with expiry sweeping.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
	done    chan struct{}
}

// NewMemoryStore creates a memory store and starts its background sweeper.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}

	return s
}

// sweep removes expired entries periodically
func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for key, expiry := range s.entries {
				if now.After(expiry) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Add records the key for ttl
func (s *MemoryStore) Add(key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	return nil
}

// Has reports whether the key is present and not expired
func (s *MemoryStore) Has(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(expiry) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

// Close stops the background sweeper
func (s *MemoryStore) Close() {
	close(s.done)
}

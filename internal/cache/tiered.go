package cache

import (
	"log"
	"time"
)

// Tiered prefers the fast store and falls back to the slow one only when the
// fast store reports an error. With the in-memory fast path the fallback is
// effectively never hit, but an external fast cache can drop out at runtime.
type Tiered struct {
	fast Store
	slow Store
}

// NewTiered creates a tiered store. slow may be nil, in which case fast-path
// errors are returned directly.
func NewTiered(fast, slow Store) *Tiered {
	return &Tiered{fast: fast, slow: slow}
}

// Add records the key for ttl
func (t *Tiered) Add(key string, ttl time.Duration) error {
	err := t.fast.Add(key, ttl)
	if err == nil || t.slow == nil {
		return err
	}

	log.Printf("[cache] fast store add failed, using fallback: %v", err)
	return t.slow.Add(key, ttl)
}

// Has reports whether the key is present and not expired
func (t *Tiered) Has(key string) (bool, error) {
	ok, err := t.fast.Has(key)
	if err == nil || t.slow == nil {
		return ok, err
	}

	log.Printf("[cache] fast store lookup failed, using fallback: %v", err)
	return t.slow.Has(key)
}

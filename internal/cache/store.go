// Package cache provides the key-existence stores backing the duplicate
// filter. The fast path is an in-process TTL map; a slower shared store can
// stand in when the fast path is unavailable. Both sides honor the same
// exists/insert/TTL contract, so callers see no behavioral difference
// beyond latency.
package cache

import "time"

// Store is a minimal key-existence store with per-key expiry.
type Store interface {
	// Add records the key for ttl. Re-adding an existing key refreshes it.
	Add(key string, ttl time.Duration) error
	// Has reports whether the key is present and not expired.
	Has(key string) (bool, error)
}

package repository

import (
	"database/sql"
	"time"
)

// DedupStore is the sqlite-backed fallback for the duplicate filter. It
// implements cache.Store with the same exists/insert/TTL semantics as the
// in-memory fast path, just slower.
type DedupStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewDedupStore creates a new sqlite dedup store
func NewDedupStore(db *sql.DB) *DedupStore {
	return &DedupStore{db: db, now: time.Now}
}

// Add records the key for ttl
func (s *DedupStore) Add(key string, ttl time.Duration) error {
	expires := s.now().Add(ttl).UnixMilli()
	query := `INSERT INTO dedup_keys (key, expires_at_ms) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET expires_at_ms = excluded.expires_at_ms`

	if _, err := s.db.Exec(query, key, expires); err != nil {
		return storageErr("add dedup key", err)
	}
	return nil
}

// Has reports whether the key is present and not expired
func (s *DedupStore) Has(key string) (bool, error) {
	var expires int64
	err := s.db.QueryRow("SELECT expires_at_ms FROM dedup_keys WHERE key = ?", key).Scan(&expires)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("lookup dedup key", err)
	}

	return s.now().UnixMilli() <= expires, nil
}

// Purge deletes expired keys. Called opportunistically by the scheduler.
func (s *DedupStore) Purge() (int64, error) {
	res, err := s.db.Exec("DELETE FROM dedup_keys WHERE expires_at_ms < ?", s.now().UnixMilli())
	if err != nil {
		return 0, storageErr("purge dedup keys", err)
	}
	return res.RowsAffected()
}

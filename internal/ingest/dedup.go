package ingest

import (
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/cache"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// coordKeyPrecision is the number of decimal places coordinates are rounded
// to when building a dedup key (~0.1 m, well under GPS noise).
const coordKeyPrecision = 6

// msThreshold: a client timestamp above this is taken to be milliseconds.
// Unix seconds will not reach 1e12 until the year 33658.
const msThreshold = 1e12

// DuplicateFilter rejects exact replays of a ping within a TTL window and
// classifies stale pings. Lookups go through a pluggable store so the fast
// path can be an in-process cache with a shared fallback behind it.
type DuplicateFilter struct {
	store cache.Store
	ttl   time.Duration
	stale time.Duration
	now   func() time.Time
}

// NewDuplicateFilter creates a duplicate filter over the given store
func NewDuplicateFilter(store cache.Store, ttl, staleThreshold time.Duration) *DuplicateFilter {
	return &DuplicateFilter{
		store: store,
		ttl:   ttl,
		stale: staleThreshold,
		now:   time.Now,
	}
}

// IsDuplicate reports whether an identical ping tuple was seen within the TTL.
// A store failure is treated as "not a duplicate": losing dedup briefly is
// preferable to dropping real pings.
func (f *DuplicateFilter) IsDuplicate(deviceID string, p models.LocationPing) bool {
	seen, err := f.store.Has(pingKey(deviceID, p))
	if err != nil {
		log.Printf("[dedup] lookup failed, passing ping through: %v", err)
		return false
	}
	return seen
}

// MarkSeen records the ping tuple for the TTL window
func (f *DuplicateFilter) MarkSeen(deviceID string, p models.LocationPing) {
	if err := f.store.Add(pingKey(deviceID, p), f.ttl); err != nil {
		log.Printf("[dedup] mark seen failed: %v", err)
	}
}

// IsStale classifies a ping by the age of its client timestamp relative to
// server time, normalizing second-resolution timestamps to milliseconds.
// A ping without a timestamp is never stale. Returns the age in seconds
// alongside the verdict.
func (f *DuplicateFilter) IsStale(p models.LocationPing) (bool, float64) {
	if p.TimestampMs == 0 {
		return false, 0
	}

	ts := p.TimestampMs
	if ts < msThreshold {
		ts *= 1000
	}

	ageS := float64(f.now().UnixMilli()-ts) / 1000
	return ageS > f.stale.Seconds(), ageS
}

// pingKey builds the stable dedup identity: device plus coordinates rounded
// to a fixed precision plus the client timestamp, hashed to keep keys short.
func pingKey(deviceID string, p models.LocationPing) string {
	lat := strconv.FormatFloat(roundTo(p.Latitude, coordKeyPrecision), 'f', coordKeyPrecision, 64)
	lon := strconv.FormatFloat(roundTo(p.Longitude, coordKeyPrecision), 'f', coordKeyPrecision, 64)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%d", deviceID, lat, lon, p.TimestampMs)
	return strconv.FormatUint(h.Sum64(), 16)
}

// roundTo rounds v to 'places' decimal digits using standard rounding.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

package service

import (
	"fmt"

	"github.com/AdarBahar/MyTrip-sub003/internal/ingest"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
)

// IngestResult reports what happened to one submitted ping.
type IngestResult struct {
	Stored  bool                 `json:"stored"`
	Reason  string               `json:"reason"`
	AgeS    float64              `json:"ageS,omitempty"`
	Metrics ingest.ChangeMetrics `json:"metrics"`
}

// Rejection reasons on top of the change-detector ones.
const (
	ReasonStale     = "stale"
	ReasonDuplicate = "duplicate"
)

// IngestService runs the ingestion hot path: staleness and duplicate
// filtering, then change detection against the last emitted ping, then
// persistence. It stays non-blocking beyond the cache/store round trips.
type IngestService struct {
	pings    *repository.PingRepository
	detector *ingest.ChangeDetector
	dedup    *ingest.DuplicateFilter
}

// NewIngestService creates a new ingest service
func NewIngestService(pings *repository.PingRepository, detector *ingest.ChangeDetector, dedup *ingest.DuplicateFilter) *IngestService {
	return &IngestService{pings: pings, detector: detector, dedup: dedup}
}

// Ingest processes one incoming ping. Thinned and filtered pings are an
// accepted outcome, not an error; only storage failures return one.
func (s *IngestService) Ingest(p models.LocationPing) (IngestResult, error) {
	if stale, ageS := s.dedup.IsStale(p); stale {
		return IngestResult{Reason: ReasonStale, AgeS: ageS}, nil
	}

	if s.dedup.IsDuplicate(p.DeviceID, p) {
		return IngestResult{Reason: ReasonDuplicate}, nil
	}

	last, err := s.pings.LastEmitted(p.DeviceID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("lookup last ping: %w", err)
	}

	decision := s.detector.ShouldEmit(p, last)
	if !decision.Emit {
		// Not significant: remember the tuple so replays stay cheap
		s.dedup.MarkSeen(p.DeviceID, p)
		return IngestResult{Reason: decision.Reason, Metrics: decision.Metrics}, nil
	}

	if err := s.pings.Insert(p); err != nil {
		return IngestResult{}, fmt.Errorf("store ping: %w", err)
	}
	s.dedup.MarkSeen(p.DeviceID, p)

	return IngestResult{Stored: true, Reason: decision.Reason, Metrics: decision.Metrics}, nil
}

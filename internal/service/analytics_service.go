package service

import (
	"fmt"

	"github.com/AdarBahar/MyTrip-sub003/internal/analysis/dwell"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
)

// AnalyticsService runs the on-demand, non-persisted dwell/drive analysis
// over an arbitrary window of stored pings. Calls are read-only and safe to
// run in parallel.
type AnalyticsService struct {
	pings    *repository.PingRepository
	analyzer *dwell.Analyzer
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(pings *repository.PingRepository, analyzer *dwell.Analyzer) *AnalyticsService {
	return &AnalyticsService{pings: pings, analyzer: analyzer}
}

func (s *AnalyticsService) fetch(filter models.AnalyticsFilter) ([]models.LocationPing, error) {
	from := filter.StartTime - 1 // window is inclusive on both ends for display
	to := filter.EndTime
	if to == 0 {
		to = 1<<62 - 1
	}

	points, err := s.pings.FetchPings(filter.DeviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch pings: %w", err)
	}
	return points, nil
}

// DetectDwells returns the ad-hoc dwell periods for the window
func (s *AnalyticsService) DetectDwells(filter models.AnalyticsFilter) ([]models.DwellPeriod, error) {
	points, err := s.fetch(filter)
	if err != nil {
		return nil, err
	}
	return s.analyzer.DetectDwells(points), nil
}

// SegmentDrives returns the drive segments (with simplified routes) between
// the dwells detected in the same window.
func (s *AnalyticsService) SegmentDrives(filter models.AnalyticsFilter) ([]models.DriveSegment, error) {
	points, err := s.fetch(filter)
	if err != nil {
		return nil, err
	}

	dwells := s.analyzer.DetectDwells(points)
	return s.analyzer.SegmentDrives(points, dwells), nil
}

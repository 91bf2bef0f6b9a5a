package service

import (
	"context"

	"github.com/AdarBahar/MyTrip-sub003/internal/analysis/session"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
)

// SessionService exposes the canonical session pipeline and its read models
type SessionService struct {
	engine   *session.Engine
	sessions *repository.SessionRepository
	rollups  *repository.RollupRepository
}

// NewSessionService creates a new session service
func NewSessionService(engine *session.Engine, sessions *repository.SessionRepository, rollups *repository.RollupRepository) *SessionService {
	return &SessionService{engine: engine, sessions: sessions, rollups: rollups}
}

// Process runs one incremental batch for a device
func (s *SessionService) Process(ctx context.Context, deviceID string, fromMs, toMs *int64) (session.Result, error) {
	return s.engine.ProcessLocationPoints(ctx, deviceID, fromMs, toMs)
}

// GetSessionsForDisplay returns map markers for a device window. No sessions
// is an empty result, never an error.
func (s *SessionService) GetSessionsForDisplay(filter models.SessionFilter) ([]models.Marker, error) {
	sessions, err := s.sessions.GetSessions(filter)
	if err != nil {
		return nil, err
	}

	markers := make([]models.Marker, 0, len(sessions))
	for _, sess := range sessions {
		markers = append(markers, models.Marker{
			Lat:          sess.CentroidLat,
			Lon:          sess.CentroidLon,
			PointCount:   sess.PointsCount,
			DwellSeconds: sess.DurationS,
			FirstTimeMs:  sess.StartTimeMs,
			LastTimeMs:   sess.EndTimeMs,
			AvgAccuracy:  sess.AccuracyAvg,
			ClusterID:    sess.ClusterID,
			Confidence:   sess.Confidence,
		})
	}

	return markers, nil
}

// GetRollups returns the daily rollups for a device over an optional day range
func (s *SessionService) GetRollups(filter models.RollupFilter) ([]models.DailyRollup, error) {
	return s.rollups.GetRollups(filter)
}

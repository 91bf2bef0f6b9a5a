package models

import "fmt"

// DwellSession is a canonical, confidence-scored period during which a device
// stayed inside one grid cell. Sessions are immutable once persisted, except
// that an adjacent-session merge replaces two sessions with one recomputed
// session. Sessions are never deleted by the analysis layer.
type DwellSession struct {
	ID            int64   `json:"id" db:"id"`
	SessionKey    string  `json:"sessionKey" db:"session_key"` // device|cluster|start, replay guard
	DeviceID      string  `json:"deviceId" db:"device_id"`
	UserID        string  `json:"userId,omitempty" db:"user_id"`
	ClusterID     string  `json:"clusterId" db:"cluster_id"`
	CentroidLat   float64 `json:"centroidLat" db:"centroid_lat"`
	CentroidLon   float64 `json:"centroidLon" db:"centroid_lon"`
	StartTimeMs   int64   `json:"startTimeMs" db:"start_time_ms"`
	EndTimeMs     int64   `json:"endTimeMs" db:"end_time_ms"`
	DurationS     int64   `json:"durationS" db:"duration_s"`
	PointsCount   int     `json:"pointsCount" db:"points_count"`
	MaxGapMs      int64   `json:"maxGapMs" db:"max_gap_ms"` // Largest internal sampling gap
	AccuracyAvg   float64 `json:"accuracyAvg" db:"accuracy_avg"`
	Confidence    float64 `json:"confidenceScore" db:"confidence_score"` // 0-100
	CreatedAt     string  `json:"createdAt,omitempty" db:"created_at"`
}

// Key derives the stable session identity used as the replay guard: a retried
// batch re-inserts the same key and the store ignores the duplicate.
func (s *DwellSession) Key() string {
	return fmt.Sprintf("%s|%s|%d", s.DeviceID, s.ClusterID, s.StartTimeMs)
}

// Marker is the display-facing projection of a DwellSession for the map UI.
type Marker struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	PointCount   int     `json:"pointCount"`
	DwellSeconds int64   `json:"dwellSeconds"`
	FirstTimeMs  int64   `json:"firstTime"`
	LastTimeMs   int64   `json:"lastTime"`
	AvgAccuracy  float64 `json:"avgAccuracy"`
	ClusterID    string  `json:"clusterId"`
	Confidence   float64 `json:"confidenceScore"`
}

// SessionFilter represents filter parameters for querying dwell sessions
type SessionFilter struct {
	DeviceID  string `form:"deviceId" binding:"required"`
	StartTime int64  `form:"startTime"` // Unix milliseconds
	EndTime   int64  `form:"endTime"`   // Unix milliseconds
}

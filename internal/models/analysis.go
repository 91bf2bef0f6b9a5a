package models

// DwellPeriod is a request-scoped dwell detected by the ad-hoc analyzer.
// It is never persisted; each call recomputes from stored pings.
type DwellPeriod struct {
	CenterLat   float64 `json:"centerLat"`
	CenterLon   float64 `json:"centerLon"`
	StartTimeMs int64   `json:"startTimeMs"`
	EndTimeMs   int64   `json:"endTimeMs"`
	DurationS   int64   `json:"durationS"`
	PointCount  int     `json:"pointCount"`
}

// LatLon is a single polyline vertex in a drive route.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DriveSegment is a request-scoped period of movement between dwells,
// carrying a simplified polyline for display.
type DriveSegment struct {
	StartTimeMs  int64    `json:"startTimeMs"`
	EndTimeMs    int64    `json:"endTimeMs"`
	DurationS    int64    `json:"durationS"`
	DistanceM    float64  `json:"distanceM"`
	AvgSpeedKmh  float64  `json:"avgSpeedKmh"`
	PointCount   int      `json:"pointCount"` // Before simplification
	Route        []LatLon `json:"route"`      // Simplified polyline
}

// AnalyticsFilter selects the ping window for on-demand dwell/drive analysis.
type AnalyticsFilter struct {
	DeviceID  string `form:"deviceId" binding:"required"`
	StartTime int64  `form:"startTime"` // Unix milliseconds
	EndTime   int64  `form:"endTime"`   // Unix milliseconds
}

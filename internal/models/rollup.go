package models

// DailyRollup is a pre-aggregated daily summary of dwell activity, keyed by
// (device, local day, cluster). It accumulates monotonically as sessions for
// that day/cluster finalize.
type DailyRollup struct {
	ID             int64   `json:"id" db:"id"`
	DeviceID       string  `json:"deviceId" db:"device_id"`
	LocalDay       string  `json:"localDay" db:"local_day"` // YYYY-MM-DD in server-local time
	ClusterID      string  `json:"clusterId" db:"cluster_id"`
	TotalDwellS    int64   `json:"totalDwellS" db:"total_dwell_s"`
	VisitCount     int     `json:"visitCount" db:"visit_count"`
	AvgConfidence  float64 `json:"avgConfidence" db:"avg_confidence"` // Incrementally weighted
	FirstVisitMs   int64   `json:"firstVisitTime" db:"first_visit_ms"`
	LastVisitMs    int64   `json:"lastVisitTime" db:"last_visit_ms"`
	CentroidLat    float64 `json:"centroidLat" db:"centroid_lat"`
	CentroidLon    float64 `json:"centroidLon" db:"centroid_lon"`
}

// RollupFilter represents filter parameters for querying daily rollups
type RollupFilter struct {
	DeviceID string `form:"deviceId" binding:"required"`
	FromDay  string `form:"fromDay"` // YYYY-MM-DD inclusive
	ToDay    string `form:"toDay"`   // YYYY-MM-DD inclusive
}

package models

// LocationPing represents a single raw GPS report from a tracked device.
// Pings are immutable once stored; the analysis layer only ever reads them.
type LocationPing struct {
	ID          int64    `json:"id" db:"id"`
	DeviceID    string   `json:"deviceId" db:"device_id"`
	UserID      string   `json:"userId,omitempty" db:"user_id"`
	TimestampMs int64    `json:"timestampMs" db:"timestamp_ms"` // Client-reported, Unix milliseconds
	Latitude    float64  `json:"latitude" db:"latitude"`
	Longitude   float64  `json:"longitude" db:"longitude"`
	AccuracyM   *float64 `json:"accuracyM,omitempty" db:"accuracy_m"` // Horizontal accuracy in meters
	SpeedMps    *float64 `json:"speedMps,omitempty" db:"speed_mps"`   // Reported speed in m/s
	HeadingDeg  *float64 `json:"headingDeg,omitempty" db:"heading_deg"`
	Battery     *float64 `json:"battery,omitempty" db:"battery"`
	Provider    string   `json:"provider,omitempty" db:"provider"` // e.g., "gps", "network", "fused"
}

// PingRequest is the ingestion payload. Lat/lon and timestamp are required;
// structurally invalid pings never reach the analysis layer.
type PingRequest struct {
	DeviceID    string   `json:"deviceId" binding:"required"`
	UserID      string   `json:"userId"`
	TimestampMs int64    `json:"timestampMs" binding:"required"`
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
	AccuracyM   *float64 `json:"accuracyM"`
	SpeedMps    *float64 `json:"speedMps"`
	HeadingDeg  *float64 `json:"headingDeg"`
	Battery     *float64 `json:"battery"`
	Provider    string   `json:"provider"`
}

// Ping converts the request into the canonical LocationPing shape.
// Alternate or duck-typed field spellings are normalized here, at the
// ingestion boundary, never inside the engine.
func (r *PingRequest) Ping() LocationPing {
	return LocationPing{
		DeviceID:    r.DeviceID,
		UserID:      r.UserID,
		TimestampMs: r.TimestampMs,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		AccuracyM:   r.AccuracyM,
		SpeedMps:    r.SpeedMps,
		HeadingDeg:  r.HeadingDeg,
		Battery:     r.Battery,
		Provider:    r.Provider,
	}
}

// PingFilter represents filter parameters for querying pings over a window
type PingFilter struct {
	DeviceID  string `form:"deviceId" binding:"required"`
	StartTime int64  `form:"startTime"` // Unix milliseconds
	EndTime   int64  `form:"endTime"`   // Unix milliseconds
}

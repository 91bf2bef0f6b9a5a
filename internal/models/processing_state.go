package models

// ProcessingState is the per-device checkpoint owned exclusively by the
// session engine. It is written only after a batch commits and read at the
// start of the next batch to resume. LastProcessedMs never moves backwards.
type ProcessingState struct {
	DeviceID        string `json:"deviceId" db:"device_id"`
	LastProcessedMs int64  `json:"lastProcessedTimeMs" db:"last_processed_ms"`
	LastClusterID   string `json:"lastClusterId,omitempty" db:"last_cluster_id"`
	OpenSessionID   *int64 `json:"openSessionId,omitempty" db:"open_session_id"`
}

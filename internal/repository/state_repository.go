package repository

import (
	"database/sql"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// StateRepository handles database operations for per-device checkpoints
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new state repository
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Load returns the processing state for a device, or nil if the device has
// never been processed.
func (r *StateRepository) Load(deviceID string) (*models.ProcessingState, error) {
	query := `SELECT device_id, last_processed_ms, last_cluster_id, open_session_id
		FROM processing_state WHERE device_id = ?`

	var s models.ProcessingState
	var cluster sql.NullString
	err := r.db.QueryRow(query, deviceID).Scan(&s.DeviceID, &s.LastProcessedMs, &cluster, &s.OpenSessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load processing state", err)
	}
	s.LastClusterID = cluster.String

	return &s, nil
}

// SaveTx writes the checkpoint inside a batch transaction. last_processed_ms
// never moves backwards: a concurrent or replayed write with an older
// timestamp keeps the newer value.
func (r *StateRepository) SaveTx(tx *sql.Tx, s models.ProcessingState) error {
	query := `INSERT INTO processing_state (device_id, last_processed_ms, last_cluster_id, open_session_id, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(device_id) DO UPDATE SET
			last_processed_ms = MAX(last_processed_ms, excluded.last_processed_ms),
			last_cluster_id = excluded.last_cluster_id,
			open_session_id = excluded.open_session_id,
			updated_at = CURRENT_TIMESTAMP`

	_, err := tx.Exec(query, s.DeviceID, s.LastProcessedMs, s.LastClusterID, s.OpenSessionID)
	if err != nil {
		return storageErr("save processing state", err)
	}
	return nil
}

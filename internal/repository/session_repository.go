package repository

import (
	"database/sql"
	"strings"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// SessionRepository handles database operations for dwell sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// InsertTx inserts a finalized session inside a batch transaction. The
// session_key unique index makes retried batches idempotent: a key that
// already landed is ignored and inserted reports false, so the caller skips
// the rollup delta too.
func (r *SessionRepository) InsertTx(tx *sql.Tx, s models.DwellSession) (inserted bool, err error) {
	query := `INSERT INTO dwell_sessions
		(session_key, device_id, user_id, cluster_id, centroid_lat, centroid_lon,
		start_time_ms, end_time_ms, duration_s, points_count, max_gap_ms, accuracy_avg, confidence_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_key) DO NOTHING`

	res, err := tx.Exec(query,
		s.SessionKey, s.DeviceID, s.UserID, s.ClusterID, s.CentroidLat, s.CentroidLon,
		s.StartTimeMs, s.EndTimeMs, s.DurationS, s.PointsCount, s.MaxGapMs, s.AccuracyAvg, s.Confidence,
	)
	if err != nil {
		return false, storageErr("insert session", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("insert session rows", err)
	}
	return n > 0, nil
}

// GetSessions retrieves dwell sessions for a device, optionally bounded by a
// time window. An empty result is not an error.
func (r *SessionRepository) GetSessions(filter models.SessionFilter) ([]models.DwellSession, error) {
	query := `SELECT id, session_key, device_id, user_id, cluster_id, centroid_lat, centroid_lon,
		start_time_ms, end_time_ms, duration_s, points_count, max_gap_ms, accuracy_avg, confidence_score
		FROM dwell_sessions`

	conditions := []string{"device_id = ?"}
	args := []interface{}{filter.DeviceID}

	if filter.StartTime > 0 {
		conditions = append(conditions, "start_time_ms >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "end_time_ms <= ?")
		args = append(args, filter.EndTime)
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY start_time_ms ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query sessions", err)
	}
	defer rows.Close()

	var sessions []models.DwellSession
	for rows.Next() {
		var s models.DwellSession
		var userID sql.NullString
		err := rows.Scan(
			&s.ID, &s.SessionKey, &s.DeviceID, &userID, &s.ClusterID, &s.CentroidLat, &s.CentroidLon,
			&s.StartTimeMs, &s.EndTimeMs, &s.DurationS, &s.PointsCount, &s.MaxGapMs, &s.AccuracyAvg, &s.Confidence,
		)
		if err != nil {
			return nil, storageErr("scan session", err)
		}
		s.UserID = userID.String
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

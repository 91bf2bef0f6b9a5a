package repository

import (
	"database/sql"
	"strings"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// RollupRepository handles database operations for daily rollups
type RollupRepository struct {
	db *sql.DB
}

// NewRollupRepository creates a new rollup repository
func NewRollupRepository(db *sql.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

// UpsertTx applies one finalized session to its (device, local day, cluster)
// rollup inside a batch transaction. Accumulation is commutative; the
// confidence average and centroid are incrementally visit-weighted. In the
// DO UPDATE clause unqualified columns refer to the pre-update row, so the
// weighted averages use the old visit_count before it is incremented.
func (r *RollupRepository) UpsertTx(tx *sql.Tx, localDay string, s models.DwellSession) error {
	query := `INSERT INTO daily_rollups
		(device_id, local_day, cluster_id, total_dwell_s, visit_count, avg_confidence,
		first_visit_ms, last_visit_ms, centroid_lat, centroid_lon)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, local_day, cluster_id) DO UPDATE SET
			total_dwell_s = total_dwell_s + excluded.total_dwell_s,
			avg_confidence = (avg_confidence * visit_count + excluded.avg_confidence) / (visit_count + 1),
			centroid_lat = (centroid_lat * visit_count + excluded.centroid_lat) / (visit_count + 1),
			centroid_lon = (centroid_lon * visit_count + excluded.centroid_lon) / (visit_count + 1),
			visit_count = visit_count + 1,
			first_visit_ms = MIN(first_visit_ms, excluded.first_visit_ms),
			last_visit_ms = MAX(last_visit_ms, excluded.last_visit_ms)`

	_, err := tx.Exec(query,
		s.DeviceID, localDay, s.ClusterID, s.DurationS, s.Confidence,
		s.StartTimeMs, s.EndTimeMs, s.CentroidLat, s.CentroidLon,
	)
	if err != nil {
		return storageErr("upsert rollup", err)
	}
	return nil
}

// GetRollups retrieves daily rollups for a device over an optional day range
func (r *RollupRepository) GetRollups(filter models.RollupFilter) ([]models.DailyRollup, error) {
	query := `SELECT id, device_id, local_day, cluster_id, total_dwell_s, visit_count,
		avg_confidence, first_visit_ms, last_visit_ms, centroid_lat, centroid_lon
		FROM daily_rollups`

	conditions := []string{"device_id = ?"}
	args := []interface{}{filter.DeviceID}

	if filter.FromDay != "" {
		conditions = append(conditions, "local_day >= ?")
		args = append(args, filter.FromDay)
	}
	if filter.ToDay != "" {
		conditions = append(conditions, "local_day <= ?")
		args = append(args, filter.ToDay)
	}

	query += " WHERE " + strings.Join(conditions, " AND ")
	query += " ORDER BY local_day ASC, cluster_id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query rollups", err)
	}
	defer rows.Close()

	var rollups []models.DailyRollup
	for rows.Next() {
		var ru models.DailyRollup
		err := rows.Scan(
			&ru.ID, &ru.DeviceID, &ru.LocalDay, &ru.ClusterID, &ru.TotalDwellS, &ru.VisitCount,
			&ru.AvgConfidence, &ru.FirstVisitMs, &ru.LastVisitMs, &ru.CentroidLat, &ru.CentroidLon,
		)
		if err != nil {
			return nil, storageErr("scan rollup", err)
		}
		rollups = append(rollups, ru)
	}

	return rollups, rows.Err()
}

package repository

import (
	"database/sql"

	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// PingRepository handles database operations for location pings
type PingRepository struct {
	db *sql.DB
}

// NewPingRepository creates a new ping repository
func NewPingRepository(db *sql.DB) *PingRepository {
	return &PingRepository{db: db}
}

// Insert stores a single ping
func (r *PingRepository) Insert(p models.LocationPing) error {
	query := `INSERT INTO location_pings
		(device_id, user_id, timestamp_ms, latitude, longitude, accuracy_m, speed_mps, heading_deg, battery, provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		p.DeviceID, p.UserID, p.TimestampMs, p.Latitude, p.Longitude,
		p.AccuracyM, p.SpeedMps, p.HeadingDeg, p.Battery, p.Provider,
	)
	if err != nil {
		return storageErr("insert ping", err)
	}
	return nil
}

// FetchPings returns all pings for a device with timestamp in
// (fromExclusive, toInclusive], ordered chronologically.
func (r *PingRepository) FetchPings(deviceID string, fromExclusive, toInclusive int64) ([]models.LocationPing, error) {
	query := `SELECT id, device_id, user_id, timestamp_ms, latitude, longitude,
		accuracy_m, speed_mps, heading_deg, battery, provider
		FROM location_pings
		WHERE device_id = ? AND timestamp_ms > ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC`

	rows, err := r.db.Query(query, deviceID, fromExclusive, toInclusive)
	if err != nil {
		return nil, storageErr("query pings", err)
	}
	defer rows.Close()

	var pings []models.LocationPing
	for rows.Next() {
		var p models.LocationPing
		var userID, provider sql.NullString
		err := rows.Scan(
			&p.ID, &p.DeviceID, &userID, &p.TimestampMs, &p.Latitude, &p.Longitude,
			&p.AccuracyM, &p.SpeedMps, &p.HeadingDeg, &p.Battery, &provider,
		)
		if err != nil {
			return nil, storageErr("scan ping", err)
		}
		p.UserID = userID.String
		p.Provider = provider.String
		pings = append(pings, p)
	}

	return pings, rows.Err()
}

// LastEmitted returns the most recent stored ping for a device, or nil if the
// device has no pings yet. The change detector compares new pings against it.
func (r *PingRepository) LastEmitted(deviceID string) (*models.LocationPing, error) {
	query := `SELECT id, device_id, user_id, timestamp_ms, latitude, longitude,
		accuracy_m, speed_mps, heading_deg, battery, provider
		FROM location_pings
		WHERE device_id = ?
		ORDER BY timestamp_ms DESC LIMIT 1`

	var p models.LocationPing
	var userID, provider sql.NullString
	err := r.db.QueryRow(query, deviceID).Scan(
		&p.ID, &p.DeviceID, &userID, &p.TimestampMs, &p.Latitude, &p.Longitude,
		&p.AccuracyM, &p.SpeedMps, &p.HeadingDeg, &p.Battery, &provider,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("query last ping", err)
	}
	p.UserID = userID.String
	p.Provider = provider.String

	return &p, nil
}

// DeviceIDs returns the distinct device ids present in the ping store
func (r *PingRepository) DeviceIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT device_id FROM location_pings")
	if err != nil {
		return nil, storageErr("query device ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan device id", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

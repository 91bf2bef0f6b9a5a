package repository

import (
	"database/sql"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/database"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

// BatchWriter commits one engine batch — finalized sessions, their rollup
// deltas and the advanced checkpoint — in a single transaction. If anything
// fails the transaction rolls back and the old checkpoint survives, so the
// scheduler can retry the device batch. The session replay guard makes that
// retry safe: a session whose key already landed is skipped along with its
// rollup delta, and blind rollup accumulation never double-counts.
type BatchWriter struct {
	db       *sql.DB
	sessions *SessionRepository
	rollups  *RollupRepository
	states   *StateRepository
	loc      *time.Location
}

// NewBatchWriter creates a batch writer over the shared repositories
func NewBatchWriter(db *sql.DB, sessions *SessionRepository, rollups *RollupRepository, states *StateRepository) *BatchWriter {
	return &BatchWriter{
		db:       db,
		sessions: sessions,
		rollups:  rollups,
		states:   states,
		loc:      time.Local,
	}
}

// CommitBatch persists sessions, rollups and the checkpoint atomically
func (w *BatchWriter) CommitBatch(sessions []models.DwellSession, state models.ProcessingState) error {
	err := database.TransactionOn(w.db, func(tx *sql.Tx) error {
		for _, s := range sessions {
			inserted, err := w.sessions.InsertTx(tx, s)
			if err != nil {
				return err
			}
			if !inserted {
				// Replayed session from a retried batch
				continue
			}

			localDay := time.UnixMilli(s.StartTimeMs).In(w.loc).Format("2006-01-02")
			if err := w.rollups.UpsertTx(tx, localDay, s); err != nil {
				return err
			}
		}

		return w.states.SaveTx(tx, state)
	})
	if err != nil && !IsStorageError(err) {
		// Begin/commit failures are storage faults too
		return storageErr("commit batch", err)
	}
	return err
}

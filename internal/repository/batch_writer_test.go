package repository

import (
	"database/sql"
	"testing"

	"github.com/AdarBahar/MyTrip-sub003/internal/database"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so every statement sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func testSession(startMs int64, durationS int64, confidence float64) models.DwellSession {
	s := models.DwellSession{
		DeviceID:    "d1",
		ClusterID:   "23766_21820",
		CentroidLat: 32.0853,
		CentroidLon: 34.7818,
		StartTimeMs: startMs,
		EndTimeMs:   startMs + durationS*1000,
		DurationS:   durationS,
		PointsCount: 10,
		AccuracyAvg: 10,
		Confidence:  confidence,
	}
	s.SessionKey = s.Key()
	return s
}

func newTestWriter(db *sql.DB) (*BatchWriter, *SessionRepository, *RollupRepository, *StateRepository) {
	sessions := NewSessionRepository(db)
	rollups := NewRollupRepository(db)
	states := NewStateRepository(db)
	return NewBatchWriter(db, sessions, rollups, states), sessions, rollups, states
}

func TestCommitBatchPersistsEverything(t *testing.T) {
	db := testDB(t)
	w, sessions, rollups, states := newTestWriter(db)

	base := int64(1_700_000_000_000)
	batch := []models.DwellSession{
		testSession(base, 600, 100),
		testSession(base+3_600_000, 900, 80),
	}
	state := models.ProcessingState{DeviceID: "d1", LastProcessedMs: base + 7_200_000}

	if err := w.CommitBatch(batch, state); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := sessions.GetSessions(models.SessionFilter{DeviceID: "d1"})
	if err != nil {
		t.Fatalf("get sessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("sessions = %d, want 2", len(got))
	}

	rus, err := rollups.GetRollups(models.RollupFilter{DeviceID: "d1"})
	if err != nil {
		t.Fatalf("get rollups: %v", err)
	}
	if len(rus) != 1 {
		t.Fatalf("rollups = %d, want 1 (same day, same cluster)", len(rus))
	}

	ru := rus[0]
	if ru.VisitCount != 2 {
		t.Errorf("visit count = %d, want 2", ru.VisitCount)
	}
	if ru.TotalDwellS != 1500 {
		t.Errorf("total dwell = %d, want 1500", ru.TotalDwellS)
	}
	if ru.AvgConfidence != 90 { // (100 + 80) / 2, incrementally weighted
		t.Errorf("avg confidence = %v, want 90", ru.AvgConfidence)
	}
	if ru.FirstVisitMs != base {
		t.Errorf("first visit = %d, want %d", ru.FirstVisitMs, base)
	}
	if ru.LastVisitMs != batch[1].EndTimeMs {
		t.Errorf("last visit = %d, want %d", ru.LastVisitMs, batch[1].EndTimeMs)
	}

	st, err := states.Load("d1")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if st == nil || st.LastProcessedMs != state.LastProcessedMs {
		t.Errorf("state = %+v, want checkpoint %d", st, state.LastProcessedMs)
	}
}

func TestCommitBatchReplayDoesNotDoubleCount(t *testing.T) {
	db := testDB(t)
	w, _, rollups, _ := newTestWriter(db)

	base := int64(1_700_000_000_000)
	batch := []models.DwellSession{testSession(base, 600, 100)}
	state := models.ProcessingState{DeviceID: "d1", LastProcessedMs: base + 600_000}

	if err := w.CommitBatch(batch, state); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	// Retried batch replays the same session key
	if err := w.CommitBatch(batch, state); err != nil {
		t.Fatalf("replay commit: %v", err)
	}

	rus, err := rollups.GetRollups(models.RollupFilter{DeviceID: "d1"})
	if err != nil {
		t.Fatalf("get rollups: %v", err)
	}
	if len(rus) != 1 {
		t.Fatalf("rollups = %d, want 1", len(rus))
	}
	if rus[0].VisitCount != 1 {
		t.Errorf("visit count = %d after replay, want 1", rus[0].VisitCount)
	}
	if rus[0].TotalDwellS != 600 {
		t.Errorf("total dwell = %d after replay, want 600", rus[0].TotalDwellS)
	}
}

func TestStateCheckpointMonotonic(t *testing.T) {
	db := testDB(t)
	states := NewStateRepository(db)

	save := func(ms int64) {
		err := database.TransactionOn(db, func(tx *sql.Tx) error {
			return states.SaveTx(tx, models.ProcessingState{DeviceID: "d1", LastProcessedMs: ms})
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	save(1000)
	save(500) // older write must not move the checkpoint backwards

	st, err := states.Load("d1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.LastProcessedMs != 1000 {
		t.Errorf("checkpoint = %d, want 1000", st.LastProcessedMs)
	}
}

func TestDedupStoreFallbackSemantics(t *testing.T) {
	db := testDB(t)
	store := NewDedupStore(db)

	if ok, _ := store.Has("k1"); ok {
		t.Fatalf("unexpected hit before Add")
	}
	if err := store.Add("k1", 300_000_000_000); err != nil { // 300s in ns
		t.Fatalf("add: %v", err)
	}
	if ok, err := store.Has("k1"); err != nil || !ok {
		t.Errorf("expected hit, ok=%v err=%v", ok, err)
	}

	// Expired keys miss and purge removes them
	if err := store.Add("k2", -1_000_000_000); err != nil { // expired 1s ago
		t.Fatalf("add expired: %v", err)
	}
	if ok, _ := store.Has("k2"); ok {
		t.Errorf("expired key should miss")
	}
	purged, err := store.Purge()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
}

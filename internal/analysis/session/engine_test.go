package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/config"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		MaxAccuracyM: 100,
		MaxSpeedKmh:  5,
		MaxGap:       time.Hour,
		MinDuration:  60 * time.Second,
		MergeGap:     300 * time.Second,
		MergeRadiusM: 30,
	}
}

// fakeStore implements PingSource, StateSource and BatchSink in memory.
type fakeStore struct {
	pings     []models.LocationPing
	state     *models.ProcessingState
	committed []models.DwellSession
	commitErr error
	commits   int
}

func (f *fakeStore) FetchPings(deviceID string, fromExclusive, toInclusive int64) ([]models.LocationPing, error) {
	var out []models.LocationPing
	for _, p := range f.pings {
		if p.DeviceID == deviceID && p.TimestampMs > fromExclusive && p.TimestampMs <= toInclusive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Load(deviceID string) (*models.ProcessingState, error) {
	return f.state, nil
}

func (f *fakeStore) CommitBatch(sessions []models.DwellSession, state models.ProcessingState) error {
	f.commits++
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, sessions...)
	f.state = &state
	return nil
}

func newTestEngine(store *fakeStore) *Engine {
	return NewEngine(store, store, store, testEngineConfig())
}

func accuratePing(deviceID string, lat, lon float64, tsMs int64) models.LocationPing {
	acc := 10.0
	return models.LocationPing{
		DeviceID:    deviceID,
		TimestampMs: tsMs,
		Latitude:    lat,
		Longitude:   lon,
		AccuracyM:   &acc,
	}
}

// stationary produces n accurate pings at one spot, one every intervalMs.
func stationary(deviceID string, lat, lon float64, startMs, intervalMs int64, n int) []models.LocationPing {
	out := make([]models.LocationPing, n)
	for i := range out {
		out[i] = accuratePing(deviceID, lat, lon, startMs+int64(i)*intervalMs)
	}
	return out
}

func i64(v int64) *int64 { return &v }

func TestProcessSingleDwellSession(t *testing.T) {
	store := &fakeStore{
		// 20 pings over 10 minutes at one spot, accuracy 10m
		pings: stationary("d1", 32.0853, 34.7818, 30_000, 30_000, 20),
	}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(0), i64(700_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if res.ProcessedCount != 20 {
		t.Errorf("processed = %d, want 20", res.ProcessedCount)
	}
	if res.SessionsCreated != 1 {
		t.Fatalf("sessions = %d, want 1", res.SessionsCreated)
	}

	s := store.committed[0]
	if s.DurationS != 570 { // 19 gaps of 30s
		t.Errorf("duration = %d, want 570", s.DurationS)
	}
	if s.PointsCount != 20 {
		t.Errorf("points = %d, want 20", s.PointsCount)
	}
	if s.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", s.Confidence)
	}
	if s.ClusterID == "" || s.SessionKey == "" {
		t.Errorf("cluster/key not set: %+v", s)
	}
	if res.NewCheckpointMs != 700_000 {
		t.Errorf("checkpoint = %d, want 700000", res.NewCheckpointMs)
	}
}

func TestProcessDropsShortSession(t *testing.T) {
	store := &fakeStore{
		// Only 30 seconds of dwell: below the 60s bar
		pings: stationary("d1", 32.0853, 34.7818, 30_000, 10_000, 4),
	}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(0), i64(700_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.SessionsCreated != 0 {
		t.Errorf("sub-minute candidate should be dropped, got %d sessions", res.SessionsCreated)
	}
	// Checkpoint still advances: dropping is not an error
	if res.NewCheckpointMs != 700_000 {
		t.Errorf("checkpoint = %d, want 700000", res.NewCheckpointMs)
	}
}

func TestProcessQualityGates(t *testing.T) {
	badAcc := 150.0
	fast := 3.0 // m/s = 10.8 km/h

	pings := stationary("d1", 32.0853, 34.7818, 30_000, 30_000, 10)
	pings[3].AccuracyM = &badAcc
	pings[5].SpeedMps = &fast

	store := &fakeStore{pings: pings}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(0), i64(700_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if res.ProcessedCount != 10 {
		t.Errorf("skipped pings still count as processed: got %d, want 10", res.ProcessedCount)
	}
	if res.QualityFiltered != 2 {
		t.Errorf("quality filtered = %d, want 2", res.QualityFiltered)
	}
	if res.SessionsCreated != 1 {
		t.Fatalf("sessions = %d, want 1", res.SessionsCreated)
	}
	if store.committed[0].PointsCount != 8 {
		t.Errorf("points = %d, want 8", store.committed[0].PointsCount)
	}
}

func TestProcessClusterChangeSplitsSessions(t *testing.T) {
	var pings []models.LocationPing
	pings = append(pings, stationary("d1", 32.0853, 34.7818, 0, 30_000, 10)...)
	// ~1.1 km north: different cell, 5+ minutes later so no merge either
	pings = append(pings, stationary("d1", 32.0953, 34.7818, 1_000_000, 30_000, 10)...)

	store := &fakeStore{pings: pings}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(-1), i64(2_000_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.SessionsCreated != 2 {
		t.Fatalf("sessions = %d, want 2", res.SessionsCreated)
	}
	if store.committed[0].ClusterID == store.committed[1].ClusterID {
		t.Errorf("expected different clusters")
	}
}

func TestProcessMaxGapSplitsSessions(t *testing.T) {
	var pings []models.LocationPing
	pings = append(pings, stationary("d1", 32.0853, 34.7818, 0, 30_000, 10)...)
	// Same place, but 2 hours later: the gap closes the first session
	pings = append(pings, stationary("d1", 32.0853, 34.7818, 7_500_000, 30_000, 10)...)

	store := &fakeStore{pings: pings}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(-1), i64(8_000_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.SessionsCreated != 2 {
		t.Fatalf("sessions = %d, want 2", res.SessionsCreated)
	}
}

func TestMergeAdjacentSessions(t *testing.T) {
	// Session A 10:00-10:05, session B 10:07-10:20 (120s gap), centroids
	// ~25m apart: inside both merge bounds, so one session 10:00-10:20.
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli()

	var pings []models.LocationPing
	pings = append(pings, stationary("d1", 32.08530, 34.78180, base, 30_000, 11)...) // 10:00-10:05
	pings = append(pings, stationary("d1", 32.08552, 34.78180, base+7*60_000, 30_000, 27)...) // 10:07-10:20

	store := &fakeStore{pings: pings}
	e := newTestEngine(store)

	res, err := e.ProcessLocationPoints(context.Background(), "d1", i64(base-1), i64(base+30*60_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.SessionsCreated != 1 {
		t.Fatalf("sessions = %d, want 1 merged", res.SessionsCreated)
	}

	s := store.committed[0]
	if s.StartTimeMs != base {
		t.Errorf("start = %d, want %d", s.StartTimeMs, base)
	}
	if s.EndTimeMs != base+20*60_000 {
		t.Errorf("end = %d, want %d", s.EndTimeMs, base+20*60_000)
	}
	// 5 min + 13 min of dwell plus the 2 min bridge
	if s.DurationS != 20*60 {
		t.Errorf("duration = %d, want 1200", s.DurationS)
	}
	if s.PointsCount != 38 {
		t.Errorf("points = %d, want 38", s.PointsCount)
	}
	// Weighted centroid sits between the two, closer to the larger session
	if s.CentroidLat <= 32.08530 || s.CentroidLat >= 32.08552 {
		t.Errorf("centroid lat %v outside the two inputs", s.CentroidLat)
	}
	if math.Abs(s.CentroidLat-32.08552) > math.Abs(s.CentroidLat-32.08530) {
		t.Errorf("centroid should lean toward the larger session")
	}
}

func TestConfidenceScoreBounds(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	// Boundary fuzz over penalty/bonus combinations
	accuracies := []float64{0, 10, 50, 51, 80, 110, 500, 10_000}
	points := []int{1, 2, 5, 100}
	durations := []int64{0, 30_000, 60_000, 1_800_000, 1_800_001, 86_400_000}
	gaps := []int64{0, 1_000, 1_800_000, 1_800_001, 7_200_000}

	for _, acc := range accuracies {
		for _, pc := range points {
			for _, dur := range durations {
				for _, gap := range gaps {
					s := models.DwellSession{
						AccuracyAvg: acc,
						PointsCount: pc,
						StartTimeMs: 0,
						EndTimeMs:   dur,
						MaxGapMs:    gap,
					}
					score := e.scoreConfidence(s)
					if score < 0 || score > 100 {
						t.Fatalf("score %v out of bounds for acc=%v points=%d dur=%d gap=%d",
							score, acc, pc, dur, gap)
					}
				}
			}
		}
	}
}

func TestConfidencePenalties(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	tests := []struct {
		name string
		s    models.DwellSession
		want float64
	}{
		{
			"clean short session",
			models.DwellSession{AccuracyAvg: 10, PointsCount: 20, StartTimeMs: 0, EndTimeMs: 600_000},
			100,
		},
		{
			"poor accuracy",
			models.DwellSession{AccuracyAvg: 70, PointsCount: 20, StartTimeMs: 0, EndTimeMs: 600_000},
			90, // (70-50)/2
		},
		{
			"sparse sampling",
			models.DwellSession{AccuracyAvg: 10, PointsCount: 2, StartTimeMs: 0, EndTimeMs: 600_000},
			80,
		},
		{
			"big internal gap",
			models.DwellSession{AccuracyAvg: 10, PointsCount: 20, StartTimeMs: 0, EndTimeMs: 600_000, MaxGapMs: 2_000_000},
			85,
		},
		{
			"long dwell bonus clamps at 100",
			models.DwellSession{AccuracyAvg: 10, PointsCount: 100, StartTimeMs: 0, EndTimeMs: 3_600_000},
			100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.scoreConfidence(tt.s); got != tt.want {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessIdempotentForFixedWindow(t *testing.T) {
	pings := stationary("d1", 32.0853, 34.7818, 30_000, 30_000, 20)

	run := func() []models.DwellSession {
		store := &fakeStore{pings: pings}
		e := newTestEngine(store)
		if _, err := e.ProcessLocationPoints(context.Background(), "d1", i64(0), i64(700_000)); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		return store.committed
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("session counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("session %d differs between identical runs", i)
		}
	}
}

func TestProcessStorageFailureKeepsCheckpoint(t *testing.T) {
	store := &fakeStore{
		pings:     stationary("d1", 32.0853, 34.7818, 30_000, 30_000, 20),
		state:     &models.ProcessingState{DeviceID: "d1", LastProcessedMs: 0},
		commitErr: errors.New("disk full"),
	}
	e := newTestEngine(store)

	_, err := e.ProcessLocationPoints(context.Background(), "d1", nil, i64(700_000))
	if err == nil {
		t.Fatalf("expected commit error to surface")
	}

	if store.state.LastProcessedMs != 0 {
		t.Errorf("checkpoint advanced despite failed commit: %d", store.state.LastProcessedMs)
	}

	// Retry after the store recovers processes the same window
	store.commitErr = nil
	res, err := e.ProcessLocationPoints(context.Background(), "d1", nil, i64(700_000))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if res.SessionsCreated != 1 {
		t.Errorf("retry sessions = %d, want 1", res.SessionsCreated)
	}
	if store.state.LastProcessedMs != 700_000 {
		t.Errorf("checkpoint = %d, want 700000", store.state.LastProcessedMs)
	}
}

func TestProcessResumesFromCheckpoint(t *testing.T) {
	var pings []models.LocationPing
	pings = append(pings, stationary("d1", 32.0853, 34.7818, 30_000, 30_000, 10)...)
	pings = append(pings, stationary("d1", 32.0953, 34.7818, 800_000, 30_000, 10)...)

	store := &fakeStore{pings: pings}
	e := newTestEngine(store)

	// First batch covers only the first dwell
	if _, err := e.ProcessLocationPoints(context.Background(), "d1", nil, i64(500_000)); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if store.state.LastProcessedMs != 500_000 {
		t.Fatalf("checkpoint = %d, want 500000", store.state.LastProcessedMs)
	}

	// Second batch resumes from the checkpoint and only sees the second dwell
	if _, err := e.ProcessLocationPoints(context.Background(), "d1", nil, i64(1_200_000)); err != nil {
		t.Fatalf("second batch failed: %v", err)
	}

	if len(store.committed) != 2 {
		t.Fatalf("total sessions = %d, want 2", len(store.committed))
	}
	if store.committed[1].StartTimeMs != 800_000 {
		t.Errorf("second session start = %d, want 800000", store.committed[1].StartTimeMs)
	}
	if store.state.LastProcessedMs != 1_200_000 {
		t.Errorf("checkpoint = %d, want 1200000", store.state.LastProcessedMs)
	}
}

func TestProcessEmptyWindow(t *testing.T) {
	store := &fakeStore{state: &models.ProcessingState{DeviceID: "d1", LastProcessedMs: 1_000}}
	e := newTestEngine(store)

	// toTime at or before the checkpoint is a no-op, not an error
	res, err := e.ProcessLocationPoints(context.Background(), "d1", nil, i64(1_000))
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.ProcessedCount != 0 || res.SessionsCreated != 0 {
		t.Errorf("expected no-op, got %+v", res)
	}
	if store.commits != 0 {
		t.Errorf("no-op window should not commit")
	}
}

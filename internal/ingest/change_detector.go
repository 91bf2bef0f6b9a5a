package ingest

import (
	"math"

	"github.com/AdarBahar/MyTrip-sub003/internal/config"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/spatial"
)

// Emit reasons returned by ShouldEmit.
const (
	ReasonFirst    = "first"
	ReasonDistance = "distance"
	ReasonTime     = "time"
	ReasonSpeed    = "speed"
	ReasonBearing  = "bearing"
	ReasonNoChange = "no_change"
)

// ChangeMetrics carries the deltas computed for a decision, emitted or not.
// Useful for diagnostics and tests.
type ChangeMetrics struct {
	DistanceM       float64 `json:"distanceM"`
	TimeDeltaS      float64 `json:"timeDeltaS"`
	SpeedDeltaKmh   float64 `json:"speedDeltaKmh"`
	BearingDeltaDeg float64 `json:"bearingDeltaDeg"`
}

// Decision is the outcome of a thinning check.
type Decision struct {
	Emit    bool          `json:"emit"`
	Reason  string        `json:"reason"`
	Metrics ChangeMetrics `json:"metrics"`
}

// ChangeDetector decides whether an incoming ping is significant enough to
// emit downstream. It is a pure decision function over two pings; thresholds
// come from configuration.
type ChangeDetector struct {
	cfg config.IngestConfig
}

// NewChangeDetector creates a change detector with the given thresholds
func NewChangeDetector(cfg config.IngestConfig) *ChangeDetector {
	return &ChangeDetector{cfg: cfg}
}

// ShouldEmit compares a new ping against the last emitted one. The first ping
// for a device always emits. Otherwise the thresholds are checked in a fixed
// order (distance, time, speed, bearing) and the first one exceeded wins.
func (d *ChangeDetector) ShouldEmit(newPing models.LocationPing, lastEmitted *models.LocationPing) Decision {
	if lastEmitted == nil {
		return Decision{Emit: true, Reason: ReasonFirst}
	}

	metrics := ChangeMetrics{
		DistanceM: spatial.HaversineDistance(
			lastEmitted.Latitude, lastEmitted.Longitude,
			newPing.Latitude, newPing.Longitude,
		),
		TimeDeltaS:      math.Abs(float64(newPing.TimestampMs-lastEmitted.TimestampMs)) / 1000,
		SpeedDeltaKmh:   speedDeltaKmh(newPing.SpeedMps, lastEmitted.SpeedMps),
		BearingDeltaDeg: bearingDelta(newPing.HeadingDeg, lastEmitted.HeadingDeg),
	}

	switch {
	case metrics.DistanceM > d.cfg.MinDistanceM:
		return Decision{Emit: true, Reason: ReasonDistance, Metrics: metrics}
	case metrics.TimeDeltaS > d.cfg.MinTimeS:
		return Decision{Emit: true, Reason: ReasonTime, Metrics: metrics}
	case metrics.SpeedDeltaKmh > d.cfg.MinSpeedKmh:
		return Decision{Emit: true, Reason: ReasonSpeed, Metrics: metrics}
	case metrics.BearingDeltaDeg > d.cfg.MinBearingDeg:
		return Decision{Emit: true, Reason: ReasonBearing, Metrics: metrics}
	}

	return Decision{Emit: false, Reason: ReasonNoChange, Metrics: metrics}
}

// speedDeltaKmh treats a missing speed as zero; providers that never report
// speed simply cannot trigger the speed threshold.
func speedDeltaKmh(a, b *float64) float64 {
	var av, bv float64
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return math.Abs(spatial.SpeedMpsToKmh(av) - spatial.SpeedMpsToKmh(bv))
}

// bearingDelta requires a heading on both pings; otherwise there is no
// meaningful course change to measure.
func bearingDelta(a, b *float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return spatial.BearingDiff(*a, *b)
}

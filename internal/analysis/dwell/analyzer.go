// Package dwell implements the stateless, whole-history dwell and drive
// analysis used for on-demand views. Nothing here is persisted; each call
// recomputes from the pings the caller fetched.
package dwell

import (
	"github.com/AdarBahar/MyTrip-sub003/internal/config"
	"github.com/AdarBahar/MyTrip-sub003/internal/models"
	"github.com/AdarBahar/MyTrip-sub003/internal/spatial"
)

// Analyzer detects ad-hoc dwell periods and drive segments over an arbitrary
// window of already-stored pings.
type Analyzer struct {
	cfg config.DwellConfig
}

// NewAnalyzer creates an analyzer with the given thresholds
func NewAnalyzer(cfg config.DwellConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// DetectDwells scans chronologically ordered pings for runs that stay within
// the dwell radius of an anchor point. The anchor is the first point of a
// run; each member updates a running arithmetic centroid. A point beyond the
// radius closes the current dwell (kept only if its span meets the minimum
// duration) and anchors a new one. The final open dwell is closed the same
// way at end of input.
func (a *Analyzer) DetectDwells(points []models.LocationPing) []models.DwellPeriod {
	var dwells []models.DwellPeriod

	var (
		anchorLat, anchorLon float64
		sumLat, sumLon       float64
		startMs, endMs       int64
		count                int
	)

	closeCurrent := func() {
		if count == 0 {
			return
		}
		durationS := (endMs - startMs) / 1000
		if durationS >= int64(a.cfg.MinDuration.Seconds()) {
			dwells = append(dwells, models.DwellPeriod{
				CenterLat:   sumLat / float64(count),
				CenterLon:   sumLon / float64(count),
				StartTimeMs: startMs,
				EndTimeMs:   endMs,
				DurationS:   durationS,
				PointCount:  count,
			})
		}
	}

	for _, p := range points {
		if count == 0 {
			anchorLat, anchorLon = p.Latitude, p.Longitude
			sumLat, sumLon = p.Latitude, p.Longitude
			startMs, endMs = p.TimestampMs, p.TimestampMs
			count = 1
			continue
		}

		dist := spatial.HaversineDistance(anchorLat, anchorLon, p.Latitude, p.Longitude)
		if dist <= a.cfg.RadiusM {
			sumLat += p.Latitude
			sumLon += p.Longitude
			endMs = p.TimestampMs
			count++
			continue
		}

		// Left the radius: close the run and re-anchor here
		closeCurrent()
		anchorLat, anchorLon = p.Latitude, p.Longitude
		sumLat, sumLon = p.Latitude, p.Longitude
		startMs, endMs = p.TimestampMs, p.TimestampMs
		count = 1
	}

	closeCurrent()
	return dwells
}

// SegmentDrives groups the points that fall outside every dwell window into
// drive runs. A run is finalized when it meets a dwell window or the input
// ends; single-point runs are discarded. Finalization computes cumulative
// distance, duration, average speed and a simplified display polyline.
func (a *Analyzer) SegmentDrives(points []models.LocationPing, dwells []models.DwellPeriod) []models.DriveSegment {
	var drives []models.DriveSegment
	var run []models.LocationPing

	flush := func() {
		if len(run) >= 2 {
			drives = append(drives, a.finalizeDrive(run))
		}
		run = run[:0]
	}

	for _, p := range points {
		if inDwellWindow(p.TimestampMs, dwells) {
			flush()
			continue
		}
		run = append(run, p)
	}
	flush()

	return drives
}

func (a *Analyzer) finalizeDrive(run []models.LocationPing) models.DriveSegment {
	route := make([]spatial.Point, len(run))
	for i, p := range run {
		route[i] = spatial.Point{Lat: p.Latitude, Lon: p.Longitude}
	}

	distanceM := spatial.PathLength(route)
	durationS := (run[len(run)-1].TimestampMs - run[0].TimestampMs) / 1000

	var avgSpeedKmh float64
	if durationS > 0 {
		avgSpeedKmh = spatial.SpeedMpsToKmh(distanceM / float64(durationS))
	}

	simplified := spatial.SimplifyPath(route, a.cfg.SimplifyEpsilonM)
	polyline := make([]models.LatLon, len(simplified))
	for i, p := range simplified {
		polyline[i] = models.LatLon{Lat: p.Lat, Lon: p.Lon}
	}

	return models.DriveSegment{
		StartTimeMs: run[0].TimestampMs,
		EndTimeMs:   run[len(run)-1].TimestampMs,
		DurationS:   durationS,
		DistanceM:   distanceM,
		AvgSpeedKmh: avgSpeedKmh,
		PointCount:  len(run),
		Route:       polyline,
	}
}

func inDwellWindow(tsMs int64, dwells []models.DwellPeriod) bool {
	for _, d := range dwells {
		if tsMs >= d.StartTimeMs && tsMs <= d.EndTimeMs {
			return true
		}
	}
	return false
}

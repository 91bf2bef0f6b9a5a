package spatial

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	// Roughly 140 m between these two points
	dist := HaversineDistance(46.0, 7.0, 46.001, 7.001)
	if math.Abs(dist-136) > 10 {
		t.Errorf("expected ~136m, got %.1f", dist)
	}

	// Zero distance for identical points
	if d := HaversineDistance(32.0853, 34.7818, 32.0853, 34.7818); d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestBearing(t *testing.T) {
	// Due north
	b := Bearing(32.0, 34.0, 33.0, 34.0)
	if math.Abs(b-0) > 0.5 {
		t.Errorf("expected ~0 (north), got %.2f", b)
	}

	// Due east (approximately, at this latitude)
	b = Bearing(0.0, 34.0, 0.0, 35.0)
	if math.Abs(b-90) > 0.5 {
		t.Errorf("expected ~90 (east), got %.2f", b)
	}
}

func TestBearingDiff(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 10, 10},
		{10, 0, 10},
		{350, 10, 20}, // wraps around north
		{180, 0, 180},
		{90, 270, 180},
		{45, 45, 0},
	}

	for _, tt := range tests {
		if got := BearingDiff(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BearingDiff(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

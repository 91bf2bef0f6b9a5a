package spatial

import "testing"

func TestCellIDStable(t *testing.T) {
	// Same coordinate always maps to the same cell
	a := CellID(32.0853, 34.7818)
	b := CellID(32.0853, 34.7818)
	if a != b {
		t.Errorf("cell id not deterministic: %s vs %s", a, b)
	}
}

func TestCellIDNearbyPointsShareCell(t *testing.T) {
	// ~10 m apart, well inside one ~150 m cell (bucket-aligned coordinates)
	base := CellID(32.08505, 34.78105)
	near := CellID(32.08510, 34.78110)
	if base != near {
		t.Errorf("nearby points in different cells: %s vs %s", base, near)
	}
}

func TestCellIDFarPointsDifferentCell(t *testing.T) {
	a := CellID(32.0853, 34.7818)
	b := CellID(32.0953, 34.7918) // ~1.4 km away
	if a == b {
		t.Errorf("distant points share cell %s", a)
	}
}

func TestCellIDLatitudeCompensation(t *testing.T) {
	// At 60N the longitude cell is twice as wide as at the equator, so a
	// longitude offset that crosses a cell at the equator may not at 60N.
	equator := CellID(0.0001, 34.7818)
	north := CellID(60.0001, 34.7818)
	if equator == north {
		t.Errorf("different latitudes share cell %s", equator)
	}
}

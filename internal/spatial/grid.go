package spatial

import (
	"fmt"
	"math"
)

// CellSizeDegrees is the latitude extent of one grid cell (~150 m).
const CellSizeDegrees = 0.00135

// CellID derives a deterministic grid cell key for a coordinate.
// Latitude buckets are fixed-size; longitude buckets are widened by
// 1/cos(lat) so cells stay roughly square away from the equator.
// Two points share a cell iff both bucket indices match.
func CellID(lat, lon float64) string {
	latBucket := int64(math.Floor(lat / CellSizeDegrees))

	lonCell := CellSizeDegrees / math.Cos(lat*math.Pi/180)
	lonBucket := int64(math.Floor(lon / lonCell))

	return fmt.Sprintf("%d_%d", latBucket, lonBucket)
}

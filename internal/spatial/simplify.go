package spatial

import (
	"math"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Centroid calculates the geographic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// PathLength calculates the total length of a path (sequence of points) in meters
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}

	var totalDist float64
	for i := 1; i < len(points); i++ {
		totalDist += HaversineDistance(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}

	return totalDist
}

// PerpendicularDistance calculates the perpendicular distance in meters from a
// point to the chord connecting lineStart and lineEnd.
// All three pairwise distances are Haversine legs, so the triangle height from
// Heron's formula stays valid for geographic coordinates without projecting
// to a plane. If the chord endpoints coincide the distance degenerates to the
// point-to-start distance.
func PerpendicularDistance(point, lineStart, lineEnd Point) float64 {
	a := HaversineDistance(point.Lat, point.Lon, lineStart.Lat, lineStart.Lon)
	b := HaversineDistance(point.Lat, point.Lon, lineEnd.Lat, lineEnd.Lon)
	base := HaversineDistance(lineStart.Lat, lineStart.Lon, lineEnd.Lat, lineEnd.Lon)

	if base == 0 {
		return a
	}

	// Heron's formula: area from the three side lengths, then height = 2*area/base
	s := (a + b + base) / 2
	areaSq := s * (s - a) * (s - b) * (s - base)
	if areaSq <= 0 {
		// Degenerate (collinear or float noise below zero)
		return 0
	}

	return 2 * math.Sqrt(areaSq) / base
}

// SimplifyPath simplifies a path using the Ramer-Douglas-Peucker algorithm
// epsilon: maximum perpendicular distance (meters) from the simplified path
func SimplifyPath(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return points
	}

	// Find the point with maximum distance from the chord
	maxDist := 0.0
	maxIndex := 0

	for i := 1; i < len(points)-1; i++ {
		dist := PerpendicularDistance(points[i], points[0], points[len(points)-1])
		if dist > maxDist {
			maxDist = dist
			maxIndex = i
		}
	}

	// If max distance is greater than epsilon, recursively simplify
	if maxDist > epsilon {
		left := SimplifyPath(points[:maxIndex+1], epsilon)
		right := SimplifyPath(points[maxIndex:], epsilon)

		// Combine results (remove duplicate middle point)
		result := make([]Point, len(left)+len(right)-1)
		copy(result, left)
		copy(result[len(left):], right[1:])
		return result
	}

	// Everything in between is within epsilon of the chord
	return []Point{points[0], points[len(points)-1]}
}

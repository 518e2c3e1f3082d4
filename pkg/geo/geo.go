// Package geo evaluates scan positions against the attendance geofence.
package geo

import "math"

// EarthRadiusMeters is the WGS-84 mean Earth radius.
const EarthRadiusMeters = 6371008.8

// Result is the outcome of a geofence evaluation.
type Result struct {
	Inside         bool    `json:"inside"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push a just above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Evaluate reports whether the student position lies within radius meters of the center.
// The boundary is inclusive.
func Evaluate(studentLat, studentLon, centerLat, centerLon, radius float64) Result {
	d := Distance(studentLat, studentLon, centerLat, centerLon)
	return Result{Inside: d <= radius, DistanceMeters: d}
}

// ValidCoordinate reports whether lat/lon are finite and within range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

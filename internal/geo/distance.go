// Package geo provides great-circle distance and bounding-box math for
// store proximity queries. Coordinates are WGS84 decimal degrees.
package geo

import "math"

// earthRadiusM is the mean Earth radius in meters (IUGG).
const earthRadiusM = 6371008.8

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance between a and b in meters,
// computed with the haversine formula on a spherical Earth. It is
// commutative and returns 0 for identical points. Accuracy is within a few
// meters for distances under 50 km, which is all the trigger engine needs.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

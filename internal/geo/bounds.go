package geo

import "math"

// kmPerLatDegree is the standard flat approximation: 1° of latitude ≈ 111 km.
const kmPerLatDegree = 111.0

// Bounds is an axis-aligned bounding box in decimal degrees, used as a cheap
// pre-filter before exact distance computation.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoundsAround returns the bounding box covering a circle of radiusKm around
// center. The longitude span is scaled by cos(latitude); near the poles,
// where that scale collapses, the box widens to the full longitude range
// rather than dividing by zero.
//
// Longitudes are treated as a flat range and are not wrapped at ±180°: a box
// straddling the antimeridian extends past the valid range and misses points
// on the far side. Stored longitudes are always within ±180°, so such a box
// still matches everything on the near side.
func BoundsAround(center Point, radiusKm float64) Bounds {
	latSpan := radiusKm / kmPerLatDegree

	lngSpan := 180.0
	if cosLat := math.Cos(radians(center.Lat)); cosLat > 1e-6 {
		lngSpan = radiusKm / (kmPerLatDegree * cosLat)
	}

	return Bounds{
		MinLat: center.Lat - latSpan,
		MaxLat: center.Lat + latSpan,
		MinLng: center.Lng - lngSpan,
		MaxLng: center.Lng + lngSpan,
	}
}

// Contains reports whether p lies within the box (inclusive).
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

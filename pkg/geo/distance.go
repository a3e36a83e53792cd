package geo

import (
	"math"
)

// earthRadiusKm is the mean Earth radius used for haversine distance.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers using the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// BoundingBox is a latitude/longitude rectangle around a center point. When
// the box crosses the antimeridian, MinLon is greater than MaxLon and Wraps
// reports true; SQL callers must OR the two longitude ranges.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Wraps reports whether the box crosses the antimeridian.
func (b BoundingBox) Wraps() bool {
	return b.MinLon > b.MaxLon
}

// kilometers per degree of latitude, and of longitude at the equator
const (
	kmPerDegreeLat = 110.574
	kmPerDegreeLon = 111.320
)

// BoundingBoxAround computes a bounding box covering radiusKm around the
// center. Latitude is clamped at the poles; longitude wraps.
func BoundingBoxAround(lat, lon, radiusKm float64) (BoundingBox, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return BoundingBox{}, err
	}
	if radiusKm <= 0 {
		radiusKm = 1
	}

	dLat := radiusKm / kmPerDegreeLat
	box := BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
	}

	// Longitude degrees shrink with latitude; use the widest absolute
	// latitude inside the box so the rectangle never undershoots.
	cosLat := math.Cos(math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat)) * math.Pi / 180)
	if cosLat < 1e-6 {
		// Box touches a pole; every longitude is in range.
		box.MinLon = -180
		box.MaxLon = 180
		return box, nil
	}

	dLon := radiusKm / (kmPerDegreeLon * cosLat)
	if dLon >= 180 {
		box.MinLon = -180
		box.MaxLon = 180
		return box, nil
	}

	box.MinLon = wrapLongitude(lon - dLon)
	box.MaxLon = wrapLongitude(lon + dLon)
	return box, nil
}

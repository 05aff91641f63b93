// Package geo provides coordinate validation and distance math for
// geo_point queries.
package geo

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/docdex/internal/domain"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// MaxRadiusMeters caps a geo search radius at half Earth's circumference.
const MaxRadiusMeters = 20_015_087.0

// Point is a validated WGS84 coordinate pair.
type Point struct {
	lat float64
	lon float64
}

// NewPoint validates latitude [-90, 90] and longitude [-180, 180].
func NewPoint(lat, lon float64) (Point, error) {
	if !ValidateCoordinates(lat, lon) {
		return Point{}, fmt.Errorf("coordinates out of range (lat %v, lon %v): %w",
			lat, lon, domain.ErrGeoQueryInvalid)
	}
	return Point{lat: lat, lon: lon}, nil
}

// Lat returns the latitude in degrees.
func (p Point) Lat() float64 { return p.lat }

// Lon returns the longitude in degrees.
func (p Point) Lon() float64 { return p.lon }

// DistanceMeters returns the great-circle distance to another point.
func (p Point) DistanceMeters(o Point) float64 {
	return Haversine(p.lat, p.lon, o.lat, o.lon)
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidateRadius checks that a search radius is positive and on-planet.
func ValidateRadius(meters float64) bool {
	return meters > 0 && meters <= MaxRadiusMeters
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

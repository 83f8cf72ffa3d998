// Package geo implements the geofence math: great-circle distance and circle
// containment. It is pure computation with no state and no I/O.
package geo

import (
	"github.com/golang/geo/s2"

	"github.com/zekeapp/placetrack/internal/domain"
)

// EarthRadiusMeters is the mean earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between two coordinates
// on a spherical earth. Symmetric in its arguments and zero for identical
// points.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// IsAtPlace reports whether the coordinate falls inside the place's geofence.
// The edge is a hard boolean at exactly the radius — a point at radius meters
// is inside, a point one epsilon beyond is not. No hysteresis band.
func IsAtPlace(lat, lon float64, place domain.Place) bool {
	return DistanceMeters(lat, lon, place.Latitude, place.Longitude) <= place.RadiusMeters
}

package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zekeapp/placetrack/internal/domain"
	"github.com/zekeapp/placetrack/internal/geo"
)

func TestDistanceMeters_Zero(t *testing.T) {
	assert.Zero(t, geo.DistanceMeters(40.0, -73.0, 40.0, -73.0))
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{40.7128, -74.0060, 34.0522, -118.2437}, // NYC ↔ LA
		{51.5074, -0.1278, 48.8566, 2.3522},     // London ↔ Paris
		{-33.8688, 151.2093, 40.7128, -74.0060}, // Sydney ↔ NYC
		{0, 0, 0.001, 0.001},
	}
	for _, p := range pairs {
		ab := geo.DistanceMeters(p[0], p[1], p[2], p[3])
		ba := geo.DistanceMeters(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// London → Paris is roughly 344 km on a spherical earth.
	d := geo.DistanceMeters(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344000, d, 2000)
}

func TestDistanceMeters_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2 km with R = 6371 km.
	d := geo.DistanceMeters(40.0, -73.0, 41.0, -73.0)
	assert.InDelta(t, 111195, d, 50)
}

func TestIsAtPlace_EdgeIsInclusive(t *testing.T) {
	place := domain.Place{Latitude: 40.0, Longitude: -73.0, RadiusMeters: 100}

	// Walk north: 1 degree latitude ≈ 111195 m, so 100 m ≈ 0.0008993 degrees.
	const degPerMeter = 1.0 / 111195.0

	atEdge := 40.0 + 100*degPerMeter
	beyond := 40.0 + 105*degPerMeter

	assert.True(t, geo.IsAtPlace(40.0, -73.0, place), "centroid is inside")
	assert.True(t, geo.IsAtPlace(atEdge-1e-9, -73.0, place), "just inside the edge")
	assert.False(t, geo.IsAtPlace(beyond, -73.0, place), "past the edge")
}

func TestIsAtPlace_Outside(t *testing.T) {
	place := domain.Place{Latitude: 40.0, Longitude: -73.0, RadiusMeters: 100}
	assert.False(t, geo.IsAtPlace(40.01, -73.0, place)) // ~1.1 km north
}

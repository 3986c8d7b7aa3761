package utils

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMilesKnownPoints(t *testing.T) {
	// LA city hall to SF city hall, roughly 347 miles great-circle.
	d := DistanceMiles(34.0537, -118.2428, 37.7793, -122.4193)
	assert.InDelta(t, 347, d, 5)

	// Zero distance for identical points.
	assert.InDelta(t, 0, DistanceMiles(40.0, -75.0, 40.0, -75.0), 1e-9)
}

func TestDistanceMilesSymmetry(t *testing.T) {
	a := DistanceMiles(34.05, -118.24, 37.77, -122.41)
	b := DistanceMiles(37.77, -122.41, 34.05, -118.24)
	assert.InDelta(t, a, b, 1e-9)
}

func TestDistanceMilesToMissingCoordinateSortsLast(t *testing.T) {
	lat, lng := 34.05, -118.24
	sLat := 34.10
	sLng := -118.30

	known := DistanceMilesTo(lat, lng, &sLat, &sLng)
	assert.Less(t, known, DistanceUnknown)

	// nil in either position yields the sentinel, never a panic.
	assert.Equal(t, DistanceUnknown, DistanceMilesTo(lat, lng, nil, &sLng))
	assert.Equal(t, DistanceUnknown, DistanceMilesTo(lat, lng, &sLat, nil))
	assert.Equal(t, DistanceUnknown, DistanceMilesTo(lat, lng, nil, nil))

	// Sorting a mixed list places the unknown-distance entry last.
	ds := []float64{DistanceUnknown, known, 0.5}
	sort.Float64s(ds)
	assert.Equal(t, DistanceUnknown, ds[len(ds)-1])
}

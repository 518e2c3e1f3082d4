package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	centerLat = -6.200000
	centerLon = 106.816666
)

func TestDistanceSamePoint(t *testing.T) {
	assert.Zero(t, Distance(centerLat, centerLon, centerLat, centerLon))
}

func TestDistanceKnownPair(t *testing.T) {
	// Jakarta Monas to Bandung Gedung Sate, roughly 119 km.
	d := Distance(-6.175392, 106.827153, -6.902481, 107.618810)
	assert.InDelta(t, 119_100, d, 1_000)
}

func TestEvaluateBoundaryInclusive(t *testing.T) {
	// One thousandth of a degree of latitude north of the center.
	lat := centerLat + 0.001
	d := Distance(lat, centerLon, centerLat, centerLon)

	onEdge := Evaluate(lat, centerLon, centerLat, centerLon, d)
	assert.True(t, onEdge.Inside)
	assert.Equal(t, d, onEdge.DistanceMeters)

	justShort := Evaluate(lat, centerLon, centerLat, centerLon, d-0.01)
	assert.False(t, justShort.Inside)

	assert.InDelta(t, 111.2, d, 0.5)
}

func TestEvaluateZeroRadius(t *testing.T) {
	assert.True(t, Evaluate(centerLat, centerLon, centerLat, centerLon, 0).Inside)
	assert.False(t, Evaluate(centerLat+0.0001, centerLon, centerLat, centerLon, 0).Inside)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(-90, 180))
	assert.True(t, ValidCoordinate(centerLat, centerLon))
	assert.False(t, ValidCoordinate(90.1, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}

package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceReflexive(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{-25.7461, 28.1881},
		{51.5074, -0.1278},
		{-90, 180},
	}
	for _, p := range points {
		assert.InDelta(t, 0, Distance(p[0], p[1], p[0], p[1]), 1e-9)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	d1 := Distance(-25.7461, 28.1881, -33.9249, 18.4241)
	d2 := Distance(-33.9249, 18.4241, -25.7461, 28.1881)
	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistancePretoriaFixture(t *testing.T) {
	// Two points a few blocks apart in Pretoria.
	d := Distance(-25.7461, 28.1881, -25.7512, 28.1923)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 5.0)
}

func TestDistanceKnownValue(t *testing.T) {
	// Pretoria to Cape Town is roughly 1300 km as the crow flies.
	d := Distance(-25.7461, 28.1881, -33.9249, 18.4241)
	assert.InDelta(t, 1300, d, 50)
}

func TestDistanceNaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(Distance(math.NaN(), 0, 0, 0)))
}

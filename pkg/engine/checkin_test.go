package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInPointsQuarterPoints(t *testing.T) {
	activated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := activated.Add(24 * time.Hour)

	points := checkInPoints(activated, deadline, DefaultFractions)
	require.Len(t, points, 4)
	assert.Equal(t, activated.Add(6*time.Hour), points[0].At)
	assert.Equal(t, activated.Add(12*time.Hour), points[1].At)
	assert.Equal(t, activated.Add(18*time.Hour), points[2].At)
	assert.Equal(t, deadline, points[3].At)
	assert.Equal(t, 0.25, points[0].Fraction)
	assert.Equal(t, 1.0, points[3].Fraction)
}

func TestCheckInPointsStrictlyIncreasing(t *testing.T) {
	activated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, window := range []time.Duration{time.Second, 6 * time.Hour, 168 * time.Hour} {
		deadline := activated.Add(window)
		points := checkInPoints(activated, deadline, DefaultFractions)

		prev := activated
		for i, p := range points {
			assert.True(t, p.At.After(prev), "window %s point %d", window, i)
			assert.False(t, p.At.After(deadline), "window %s point %d past deadline", window, i)
			prev = p.At
		}
	}
}

func TestCheckInPointsCollapseDuplicates(t *testing.T) {
	activated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := activated.Add(time.Hour)

	// Fractions past 1.0 all clamp to the deadline; the surviving point
	// carries the largest of the collapsed fractions.
	points := checkInPoints(activated, deadline, []float64{0.5, 1.0, 1.5})
	require.Len(t, points, 2)
	assert.Equal(t, deadline, points[1].At)
	assert.Equal(t, 1.5, points[1].Fraction)

	// Repeated fractions collapse without shifting later checkpoints; the
	// final disposition fraction is always present.
	points = checkInPoints(activated, deadline, []float64{0.5, 0.5, 1.0})
	require.Len(t, points, 2)
	assert.Equal(t, 0.5, points[0].Fraction)
	assert.Equal(t, 1.0, points[1].Fraction)
}

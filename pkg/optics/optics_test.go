package optics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviationMinimum(t *testing.T) {
	// At minimum deviation the ray passes symmetrically:
	// dmin = 2 asin(n sin(A/2)) - A at i1 = (A + dmin) / 2.
	const n, apex = 1.5, 60.0
	dmin := 2*math.Asin(n*math.Sin(apex/2*math.Pi/180))*180/math.Pi - apex
	i1 := (apex + dmin) / 2

	got, err := Deviation(n, i1, apex)
	require.NoError(t, err)
	assert.InDelta(t, dmin, got, 1e-9)

	// Minimum: nearby incidence angles deviate more.
	for _, di := range []float64{-2, -1, 1, 2} {
		d, err := Deviation(n, i1+di, apex)
		require.NoError(t, err)
		assert.Greater(t, d, dmin)
	}
}

func TestDeviationTotalInternalReflection(t *testing.T) {
	// Shallow incidence on a dense prism: the ray cannot exit face two.
	_, err := Deviation(1.7, 20, 60)
	assert.ErrorIs(t, err, ErrTotalInternalReflection)
}

func TestIndexFromMinDeviationRoundTrip(t *testing.T) {
	for _, n := range []float64{1.45, 1.5, 1.62} {
		dmin := 2*math.Asin(n*math.Sin(30*math.Pi/180))*180/math.Pi - 60
		assert.InDelta(t, n, IndexFromMinDeviation(dmin, 60), 1e-9)
	}
}

func TestDeviationIncreasesWithIndex(t *testing.T) {
	prev := -math.MaxFloat64
	for _, n := range []float64{1.45, 1.50, 1.55, 1.60} {
		d, err := Deviation(n, 55, 60)
		require.NoError(t, err)
		assert.Greater(t, d, prev)
		prev = d
	}
}

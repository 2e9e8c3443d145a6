package cluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerStandardizes(t *testing.T) {
	X := [][]float64{{1, 100}, {2, 200}, {3, 300}, {4, 400}}

	var s Scaler
	scaled, err := s.Fit(X)
	require.NoError(t, err)

	for d := 0; d < 2; d++ {
		var mean float64
		for _, x := range scaled {
			mean += x[d]
		}
		mean /= float64(len(scaled))
		assert.InDelta(t, 0, mean, 1e-9)
	}

	// Transform on new data uses the fitted statistics.
	one := s.TransformOne([]float64{2.5, 250})
	assert.InDelta(t, 0, one[0], 1e-9)
	assert.InDelta(t, 0, one[1], 1e-9)
}

func TestScalerConstantColumn(t *testing.T) {
	var s Scaler
	scaled, err := s.Fit([][]float64{{5, 1}, {5, 2}, {5, 3}})
	require.NoError(t, err)
	for _, x := range scaled {
		assert.Equal(t, 0.0, x[0])
	}
}

func TestScalerGuardsNonFinite(t *testing.T) {
	var s Scaler
	_, err := s.Fit([][]float64{{1, 1}, {2, 2}, {3, 3}})
	require.NoError(t, err)

	out := s.TransformOne([]float64{math.NaN(), math.Inf(1)})
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.0, out[1])
}

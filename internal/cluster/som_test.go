package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSOMSeparatesBlobs(t *testing.T) {
	X := blobs(3, 25, []float64{0, 0}, []float64{10, 10})

	som := NewSOM(2, 42)
	labels, err := som.Fit(X)
	require.NoError(t, err)
	require.Len(t, labels, 50)

	// Dense ids, bounded by the grid.
	n := som.NumClusters()
	assert.Greater(t, n, 0)
	assert.LessOrEqual(t, n, 4)
	for _, l := range labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, n)
	}

	// Points from different blobs map to different best-matching nodes.
	assert.NotEqual(t, labels[0], labels[25])

	// Assign agrees with the fitted labels.
	for i, x := range X {
		assert.Equal(t, labels[i], som.Assign(x))
	}
}

func TestSOMQuantizationErrorShrinksWithTraining(t *testing.T) {
	X := blobs(4, 30, []float64{0, 0}, []float64{8, -3}, []float64{-6, 6})

	short := NewSOM(3, 9)
	short.MaxIter = 10
	_, err := short.Fit(X)
	require.NoError(t, err)

	long := NewSOM(3, 9)
	long.MaxIter = 2000
	_, err = long.Fit(X)
	require.NoError(t, err)

	assert.LessOrEqual(t, long.QuantizationError(X), short.QuantizationError(X)+1e-9)
}

func TestSOMEmptyInput(t *testing.T) {
	_, err := NewSOM(2, 1).Fit(nil)
	assert.Error(t, err)
}

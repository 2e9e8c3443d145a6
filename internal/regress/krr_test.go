package regress

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelRidgeLinear(t *testing.T) {
	// y = 2a - b is recoverable exactly by a linear kernel.
	X := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 3}, {3, 2}}
	y := make([]float64, len(X))
	for i, x := range X {
		y[i] = 2*x[0] - x[1]
	}

	kr := KernelRidge{Params: KRRParams{Kernel: KernelLinear, Lambda: 1e-8}}
	require.NoError(t, kr.Fit(X, y))

	for i, x := range X {
		assert.InDelta(t, y[i], kr.Predict(x), 1e-3)
	}
	assert.InDelta(t, 2*1.5-0.5, kr.Predict([]float64{1.5, 0.5}), 1e-2)
}

func TestKernelRidgeRBFSmoothFunction(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var X [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		v := rng.Float64() * 4
		X = append(X, []float64{v})
		y = append(y, math.Sin(v))
	}

	kr := KernelRidge{Params: KRRParams{Kernel: KernelRBF, Gamma: 1, Lambda: 1e-6}}
	require.NoError(t, kr.Fit(X, y))

	for _, v := range []float64{0.5, 1.5, 2.5, 3.5} {
		assert.InDelta(t, math.Sin(v), kr.Predict([]float64{v}), 0.05)
	}
}

func TestKernelRidgeDuplicateSamples(t *testing.T) {
	// Duplicated rows make K singular without the ridge term; fitting must
	// still succeed via regularization.
	X := [][]float64{{1}, {1}, {2}, {2}, {3}, {3}}
	y := []float64{1, 1, 2, 2, 3, 3}

	kr := KernelRidge{Params: KRRParams{Kernel: KernelRBF, Gamma: 0.5, Lambda: 1e-10}}
	require.NoError(t, kr.Fit(X, y))
	assert.InDelta(t, 2, kr.Predict([]float64{2}), 0.1)
}

func TestKernelRidgeBadInput(t *testing.T) {
	var kr KernelRidge
	assert.Error(t, kr.Fit(nil, nil))
	assert.Error(t, kr.Fit([][]float64{{1}}, []float64{1, 2}))
}

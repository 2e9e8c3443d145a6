package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance. The
// statistics are part of the trained model artifact: prediction must use
// the exact statistics fitting used.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit learns per-dimension statistics and returns the transformed matrix.
func (s *Scaler) Fit(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("scaler: no samples")
	}
	dim := len(X[0])
	s.Mean = make([]float64, dim)
	s.Std = make([]float64, dim)

	col := make([]float64, len(X))
	for d := 0; d < dim; d++ {
		for i, x := range X {
			col[i] = x[d]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(mean) {
			mean = 0
		}
		if math.IsNaN(std) || std < 1e-12 {
			std = 1
		}
		s.Mean[d] = mean
		s.Std[d] = std
	}
	return s.Transform(X), nil
}

// Transform standardizes a matrix with the fitted statistics.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = s.TransformOne(x)
	}
	return out
}

// TransformOne standardizes a single vector. Non-finite inputs map to
// zero, mirroring the training-side guard.
func (s *Scaler) TransformOne(x []float64) []float64 {
	out := make([]float64, len(x))
	for d := range x {
		v := (x[d] - s.Mean[d]) / s.Std[d]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[d] = v
	}
	return out
}

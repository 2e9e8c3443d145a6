// Package regress fits one kernel regression estimator per feature
// cluster and derives per-prediction confidence from distance to the
// cluster representative and the cluster's held-out error.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KernelKind selects the kernel function.
type KernelKind string

const (
	KernelRBF    KernelKind = "rbf"
	KernelLinear KernelKind = "linear"
)

// KRRParams are the continuous hyperparameters of a kernel ridge
// estimator. Gamma is the RBF width, Lambda the ridge regularization.
type KRRParams struct {
	Kernel KernelKind `json:"kernel"`
	Gamma  float64    `json:"gamma"`
	Lambda float64    `json:"lambda"`
}

// KernelRidge is a closed-form kernel ridge regressor: alpha solves
// (K + lambda I) alpha = y over the training set, and prediction is
// sum_i alpha_i k(x, x_i).
type KernelRidge struct {
	Params  KRRParams   `json:"params"`
	Support [][]float64 `json:"support"`
	Alpha   []float64   `json:"alpha"`
}

// Fit solves the ridge system over (X, y). X is retained as the support
// set for prediction.
func (kr *KernelRidge) Fit(X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || n != len(y) {
		return fmt.Errorf("krr: %d samples, %d targets", n, len(y))
	}

	lambda := kr.Params.Lambda
	if lambda <= 0 {
		lambda = 1e-8
	}

	// Jittered retries cover near-singular kernel matrices from
	// duplicated samples.
	for attempt := 0; attempt < 4; attempt++ {
		K := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := kr.kernel(X[i], X[j])
				if i == j {
					v += lambda
				}
				K.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(K) {
			lambda *= 10
			continue
		}

		alpha := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, y)); err != nil {
			lambda *= 10
			continue
		}

		kr.Support = X
		kr.Alpha = make([]float64, n)
		copy(kr.Alpha, alpha.RawVector().Data)
		return nil
	}
	return fmt.Errorf("krr: kernel matrix not positive definite after regularization")
}

// Predict evaluates the fitted estimator at x.
func (kr *KernelRidge) Predict(x []float64) float64 {
	var sum float64
	for i, s := range kr.Support {
		sum += kr.Alpha[i] * kr.kernel(x, s)
	}
	return sum
}

func (kr *KernelRidge) kernel(a, b []float64) float64 {
	switch kr.Params.Kernel {
	case KernelLinear:
		return floats.Dot(a, b)
	default:
		d := floats.Distance(a, b, 2)
		return math.Exp(-kr.Params.Gamma * d * d)
	}
}

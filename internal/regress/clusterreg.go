package regress

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrInsufficientValidSamples is returned when no cluster reaches the
// minimum sample count needed to fit a regression estimator. A single
// undersized cluster is skipped, not fatal; all clusters undersized is.
var ErrInsufficientValidSamples = errors.New("insufficient valid samples")

// DefaultMinClusterSamples is the minimum training samples a cluster must
// hold to get its own estimator.
const DefaultMinClusterSamples = 10

// defaultErrScale normalizes a cluster's validation MAE into [0,1] for
// the confidence combination: an MAE of 0.05 refractive-index units or
// worse zeroes the error term.
const defaultErrScale = 0.05

// ClusterModel is one cluster's fitted estimator plus the statistics
// confidence scoring needs.
type ClusterModel struct {
	KRR       KernelRidge `json:"krr"`
	Count     int         `json:"count"`
	ValMAE    float64     `json:"val_mae"`
	DistScale float64     `json:"dist_scale"`
}

// ClusterRegressor owns one estimator per qualifying cluster and a global
// mean fallback for vectors landing in an unmodeled cluster.
type ClusterRegressor struct {
	Params     KRRParams             `json:"params"`
	MinSamples int                   `json:"min_samples"`
	ErrScale   float64               `json:"err_scale"`
	Models     map[int]*ClusterModel `json:"models"`
	GlobalMean float64               `json:"global_mean"`
	Skipped    []int                 `json:"skipped,omitempty"`
}

// NewClusterRegressor creates an unfitted regressor with the given kernel
// hyperparameters.
func NewClusterRegressor(params KRRParams, minSamples int) *ClusterRegressor {
	if minSamples <= 0 {
		minSamples = DefaultMinClusterSamples
	}
	return &ClusterRegressor{
		Params:     params,
		MinSamples: minSamples,
		ErrScale:   defaultErrScale,
		Models:     map[int]*ClusterModel{},
	}
}

// Fit trains one estimator per cluster holding at least MinSamples
// samples. reps maps cluster id to its representative point and is used
// to record each cluster's training distance scale. Undersized clusters
// are recorded in Skipped; if every cluster is undersized, Fit fails with
// ErrInsufficientValidSamples.
func (cr *ClusterRegressor) Fit(X [][]float64, y []float64, assignments []int, reps [][]float64) error {
	if len(X) == 0 || len(X) != len(y) || len(X) != len(assignments) {
		return fmt.Errorf("cluster regressor: inconsistent inputs (%d, %d, %d)",
			len(X), len(y), len(assignments))
	}

	cr.GlobalMean = meanFinite(y)
	cr.Models = map[int]*ClusterModel{}
	cr.Skipped = nil

	byCluster := map[int][]int{}
	for i, c := range assignments {
		byCluster[c] = append(byCluster[c], i)
	}

	ids := make([]int, 0, len(byCluster))
	for c := range byCluster {
		ids = append(ids, c)
	}
	sort.Ints(ids)

	for _, c := range ids {
		idx := byCluster[c]
		if len(idx) < cr.MinSamples {
			cr.Skipped = append(cr.Skipped, c)
			continue
		}

		cx := make([][]float64, len(idx))
		cy := make([]float64, len(idx))
		for i, j := range idx {
			cx[i] = X[j]
			cy[i] = y[j]
		}

		m := &ClusterModel{KRR: KernelRidge{Params: cr.Params}, Count: len(idx)}
		if err := m.KRR.Fit(cx, cy); err != nil {
			cr.Skipped = append(cr.Skipped, c)
			continue
		}
		if c < len(reps) && reps[c] != nil {
			m.DistScale = distScale(cx, reps[c])
		}
		cr.Models[c] = m
	}

	if len(cr.Models) == 0 {
		return fmt.Errorf("%w: no cluster reached %d samples", ErrInsufficientValidSamples, cr.MinSamples)
	}
	return nil
}

// Predict evaluates the assigned cluster's estimator at x. Vectors in a
// cluster without an estimator fall back to the global mean; the second
// return reports whether a fitted estimator was used.
func (cr *ClusterRegressor) Predict(x []float64, clusterID int) (float64, bool) {
	m, ok := cr.Models[clusterID]
	if !ok {
		return cr.GlobalMean, false
	}
	v := m.KRR.Predict(x)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return cr.GlobalMean, false
	}
	return v, true
}

// EvaluateValidation scores the fitted estimators on held-out data,
// recording per-cluster validation MAE and returning the overall MAE.
// Clusters absent from the validation split inherit the overall MAE.
func (cr *ClusterRegressor) EvaluateValidation(X [][]float64, y []float64, assignments []int) (float64, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("cluster regressor: empty validation set")
	}

	absErrs := map[int][]float64{}
	var total, n float64
	for i, x := range X {
		pred, _ := cr.Predict(x, assignments[i])
		ae := math.Abs(pred - y[i])
		absErrs[assignments[i]] = append(absErrs[assignments[i]], ae)
		total += ae
		n++
	}
	overall := total / n

	for c, m := range cr.Models {
		if errs, ok := absErrs[c]; ok {
			m.ValMAE = meanFinite(errs)
		} else {
			m.ValMAE = overall
		}
	}
	return overall, nil
}

// Confidence scores a prediction in [0,1]: 1 minus the average of the
// normalized distance to the cluster representative and the cluster's
// normalized validation error. Monotone non-increasing in both.
func (cr *ClusterRegressor) Confidence(x []float64, clusterID int, rep []float64) float64 {
	m, ok := cr.Models[clusterID]
	if !ok {
		return 0
	}

	normDist := 0.0
	if rep != nil {
		scale := m.DistScale
		if scale < 1e-12 {
			scale = 1
		}
		normDist = clamp01(floats.Distance(x, rep, 2) / (2 * scale))
	}
	normErr := clamp01(m.ValMAE / cr.ErrScale)

	return clamp01(1 - (normDist+normErr)/2)
}

// distScale is the 95th percentile of member distances to the cluster
// representative, the normalization base for the confidence distance term.
func distScale(members [][]float64, rep []float64) float64 {
	dists := make([]float64, len(members))
	for i, m := range members {
		dists[i] = floats.Distance(m, rep, 2)
	}
	sort.Float64s(dists)
	idx := int(0.95 * float64(len(dists)-1))
	if dists[idx] < 1e-12 {
		return 1
	}
	return dists[idx]
}

func meanFinite(xs []float64) float64 {
	var sum, n float64
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

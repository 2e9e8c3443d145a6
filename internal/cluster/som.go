package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// SOM is a square self-organizing map trained by competitive learning:
// each input pulls its best-matching node and, with Gaussian falloff, the
// node's grid neighbors. Learning rate and neighborhood radius decay
// exponentially. After fitting, occupied nodes are relabeled to dense
// cluster ids so downstream code sees the same contract as k-means.
type SOM struct {
	GridSize     int     `json:"grid_size"`
	LearningRate float64 `json:"learning_rate"`
	Sigma        float64 `json:"sigma"`
	MaxIter      int     `json:"max_iter"`
	Seed         int64   `json:"seed"`

	// Weights holds one vector per occupied node after fitting, indexed
	// by dense cluster id.
	Weights [][]float64 `json:"weights,omitempty"`
}

// NewSOM creates an unfitted SOM with a gridSize x gridSize node grid.
func NewSOM(gridSize int, seed int64) *SOM {
	return &SOM{
		GridSize:     gridSize,
		LearningRate: 0.5,
		Sigma:        math.Max(1, float64(gridSize)/2),
		MaxIter:      1000,
		Seed:         seed,
	}
}

// Kind implements Clusterer.
func (s *SOM) Kind() Kind { return KindSOM }

// NumClusters implements Clusterer.
func (s *SOM) NumClusters() int { return len(s.Weights) }

// Representative implements Clusterer.
func (s *SOM) Representative(id int) []float64 { return s.Weights[id] }

// Fit implements Clusterer.
func (s *SOM) Fit(X [][]float64) ([]int, error) {
	n := len(X)
	nodes := s.GridSize * s.GridSize
	if n == 0 {
		return nil, fmt.Errorf("som: no samples")
	}
	dim := len(X[0])
	rng := rand.New(rand.NewSource(s.Seed))

	// Sample-based init with a small jitter so duplicate draws separate.
	weights := make([][]float64, nodes)
	for i := range weights {
		weights[i] = append([]float64(nil), X[rng.Intn(n)]...)
		for d := 0; d < dim; d++ {
			weights[i][d] += rng.NormFloat64() * 1e-3
		}
	}

	for t := 0; t < s.MaxIter; t++ {
		decay := math.Exp(-float64(t) / float64(s.MaxIter))
		lr := s.LearningRate * decay
		sigma := s.Sigma * decay

		x := X[rng.Intn(n)]
		bmu := nearest(x, weights)
		br, bc := bmu/s.GridSize, bmu%s.GridSize

		twoSigma2 := 2 * sigma * sigma
		for i := range weights {
			gr, gc := i/s.GridSize, i%s.GridSize
			gridDist2 := float64((gr-br)*(gr-br) + (gc-bc)*(gc-bc))
			h := math.Exp(-gridDist2 / twoSigma2)
			if h < 1e-4 {
				continue
			}
			for d := 0; d < dim; d++ {
				weights[i][d] += lr * h * (x[d] - weights[i][d])
			}
		}
	}

	// Assign all samples, then keep only occupied nodes under dense ids.
	raw := make([]int, n)
	occupied := map[int]bool{}
	for i, x := range X {
		raw[i] = nearest(x, weights)
		occupied[raw[i]] = true
	}

	remap := make(map[int]int, len(occupied))
	s.Weights = s.Weights[:0]
	for node := 0; node < nodes; node++ {
		if occupied[node] {
			remap[node] = len(s.Weights)
			s.Weights = append(s.Weights, weights[node])
		}
	}

	labels := make([]int, n)
	for i, node := range raw {
		labels[i] = remap[node]
	}
	return labels, nil
}

// Assign implements Clusterer. Assignment is the best-matching occupied
// node, the same metric used during fitting.
func (s *SOM) Assign(x []float64) int {
	return nearest(x, s.Weights)
}

// QuantizationError is the mean distance from samples to their BMU, a
// fit-quality diagnostic.
func (s *SOM) QuantizationError(X [][]float64) float64 {
	if len(X) == 0 || len(s.Weights) == 0 {
		return 0
	}
	var sum float64
	for _, x := range X {
		sum += floats.Distance(x, s.Weights[nearest(x, s.Weights)], 2)
	}
	return sum / float64(len(X))
}

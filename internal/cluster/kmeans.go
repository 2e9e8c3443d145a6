package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// KMeans is standard Lloyd iteration with k-means++ seeding. Fitting
// restarts NInit times and keeps the partition with the lowest
// within-cluster variance, so results are reproducible for a fixed seed.
type KMeans struct {
	K       int     `json:"k"`
	NInit   int     `json:"n_init"`
	MaxIter int     `json:"max_iter"`
	Seed    int64   `json:"seed"`
	Tol     float64 `json:"tol"`

	Centroids [][]float64 `json:"centroids,omitempty"`
}

// NewKMeans creates an unfitted k-means clusterer with k centroids.
func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{K: k, NInit: 10, MaxIter: 300, Seed: seed, Tol: 1e-6}
}

// Kind implements Clusterer.
func (km *KMeans) Kind() Kind { return KindKMeans }

// NumClusters implements Clusterer.
func (km *KMeans) NumClusters() int { return len(km.Centroids) }

// Representative implements Clusterer.
func (km *KMeans) Representative(id int) []float64 { return km.Centroids[id] }

// Fit implements Clusterer.
func (km *KMeans) Fit(X [][]float64) ([]int, error) {
	n := len(X)
	if n < km.K {
		return nil, fmt.Errorf("kmeans: %d samples for %d clusters", n, km.K)
	}

	rng := rand.New(rand.NewSource(km.Seed))
	bestInertia := math.Inf(1)
	var bestCentroids [][]float64
	var bestLabels []int

	for run := 0; run < km.NInit; run++ {
		centroids := km.seedPlusPlus(X, rng)
		labels := make([]int, n)

		for iter := 0; iter < km.MaxIter; iter++ {
			// Assignment step.
			for i, x := range X {
				labels[i] = nearest(x, centroids)
			}

			// Update step.
			next := make([][]float64, km.K)
			counts := make([]int, km.K)
			for c := range next {
				next[c] = make([]float64, len(X[0]))
			}
			for i, x := range X {
				floats.Add(next[labels[i]], x)
				counts[labels[i]]++
			}
			shift := 0.0
			for c := range next {
				if counts[c] == 0 {
					// Re-seed an empty cluster from a random sample.
					copy(next[c], X[rng.Intn(n)])
				} else {
					floats.Scale(1/float64(counts[c]), next[c])
				}
				shift += floats.Distance(next[c], centroids[c], 2)
			}
			centroids = next
			if shift < km.Tol {
				break
			}
		}

		inertia := 0.0
		for i, x := range X {
			labels[i] = nearest(x, centroids)
			d := floats.Distance(x, centroids[labels[i]], 2)
			inertia += d * d
		}
		if inertia < bestInertia {
			bestInertia = inertia
			bestCentroids = centroids
			bestLabels = append([]int(nil), labels...)
		}
	}

	km.Centroids = bestCentroids
	return bestLabels, nil
}

// Assign implements Clusterer.
func (km *KMeans) Assign(x []float64) int {
	return nearest(x, km.Centroids)
}

// seedPlusPlus picks initial centroids with k-means++ weighting.
func (km *KMeans) seedPlusPlus(X [][]float64, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, km.K)
	centroids = append(centroids, append([]float64(nil), X[rng.Intn(n)]...))

	d2 := make([]float64, n)
	for len(centroids) < km.K {
		var sum float64
		for i, x := range X {
			d := floats.Distance(x, centroids[nearest(x, centroids)], 2)
			d2[i] = d * d
			sum += d2[i]
		}
		pick := n - 1
		if sum > 0 {
			r := rng.Float64() * sum
			for i, w := range d2 {
				r -= w
				if r <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.Intn(n)
		}
		centroids = append(centroids, append([]float64(nil), X[pick]...))
	}
	return centroids
}

// nearest returns the index of the closest representative under Euclidean
// distance.
func nearest(x []float64, reps [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, r := range reps {
		if d := floats.Distance(x, r, 2); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

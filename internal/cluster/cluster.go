// Package cluster partitions feature vectors with one of two
// interchangeable algorithms: centroid-based k-means or a self-organizing
// map. Consumers select a variant by Kind and talk to the Clusterer
// interface only.
package cluster

import (
	"errors"
	"fmt"
)

// Kind names a clustering algorithm variant.
type Kind string

const (
	KindKMeans Kind = "kmeans"
	KindSOM    Kind = "som"
)

// ErrNotFitted is returned when Assign or Representative is called before
// Fit.
var ErrNotFitted = errors.New("clusterer not fitted")

// Clusterer partitions feature vectors into dense cluster ids [0, n).
// Assign must use the same distance metric as Fit.
type Clusterer interface {
	// Fit learns the partition and returns one cluster id per row of X.
	Fit(X [][]float64) ([]int, error)
	// Assign maps a single vector to its nearest cluster.
	Assign(x []float64) int
	// Representative returns the cluster's representative point (centroid
	// or node weight). The returned slice must not be modified.
	Representative(id int) []float64
	// NumClusters returns the number of clusters after fitting.
	NumClusters() int
	// Kind identifies the algorithm variant.
	Kind() Kind
}

// New constructs a clusterer of the given kind. For k-means, k is the
// cluster count; for the SOM it is the square grid side, so up to k*k
// clusters exist (unoccupied nodes are dropped during fitting).
func New(kind Kind, k int, seed int64) (Clusterer, error) {
	if k < 1 {
		return nil, fmt.Errorf("cluster count %d out of range", k)
	}
	switch kind {
	case KindKMeans:
		return NewKMeans(k, seed), nil
	case KindSOM:
		return NewSOM(k, seed), nil
	default:
		return nil, fmt.Errorf("unknown clustering kind %q", kind)
	}
}

// Package store persists trained model artifacts as portable JSON
// bundles, publishes them atomically, and ranks saved models by recorded
// validation error.
package store

import (
	"fmt"
	"time"

	"prism-predictor/internal/cluster"
	"prism-predictor/internal/regress"
)

// CurrentVersion is the artifact format version written by this package.
const CurrentVersion = 1

// Hyperparams is the configuration the winning trial trained with,
// embedded in the artifact so compare() never needs a refit.
type Hyperparams struct {
	Algorithm cluster.Kind       `json:"algorithm"`
	K         int                `json:"k"`
	Kernel    regress.KernelKind `json:"kernel"`
	Gamma     float64            `json:"gamma"`
	Lambda    float64            `json:"lambda"`
}

// Metadata records training provenance.
type Metadata struct {
	CreatedAt       time.Time `json:"created_at"`
	SampleCount     int       `json:"sample_count"`
	TrainCount      int       `json:"train_count"`
	ValCount        int       `json:"val_count"`
	ValMAE          float64   `json:"val_mae"`
	SkippedClusters []int     `json:"skipped_clusters,omitempty"`
}

// Model is the complete trained artifact: fitted clustering state (a
// tagged variant, exactly one of KMeans/SOM set), per-cluster regression
// estimators, the feature scaler, hyperparameters, and metadata.
// Immutable after persistence.
type Model struct {
	Version int         `json:"version"`
	ID      string      `json:"id"`
	Hyper   Hyperparams `json:"hyperparams"`

	Scaler cluster.Scaler `json:"scaler"`
	KMeans *cluster.KMeans `json:"kmeans,omitempty"`
	SOM    *cluster.SOM    `json:"som,omitempty"`

	Regressor *regress.ClusterRegressor `json:"regressor"`
	Meta      Metadata                  `json:"meta"`
}

// NewModel packages fitted components into an artifact. The clusterer is
// stored under its variant tag.
func NewModel(hyper Hyperparams, scaler cluster.Scaler, cl cluster.Clusterer,
	reg *regress.ClusterRegressor, meta Metadata) (*Model, error) {

	m := &Model{
		Version:   CurrentVersion,
		Hyper:     hyper,
		Scaler:    scaler,
		Regressor: reg,
		Meta:      meta,
	}
	switch c := cl.(type) {
	case *cluster.KMeans:
		m.KMeans = c
	case *cluster.SOM:
		m.SOM = c
	default:
		return nil, fmt.Errorf("unsupported clusterer variant %q", cl.Kind())
	}
	return m, nil
}

// Clusterer returns the fitted clustering variant, or nil for a corrupt
// artifact.
func (m *Model) Clusterer() cluster.Clusterer {
	switch {
	case m.KMeans != nil:
		return m.KMeans
	case m.SOM != nil:
		return m.SOM
	default:
		return nil
	}
}

// Predict runs the artifact's scale → assign → regress → confidence chain
// on a raw feature vector.
func (m *Model) Predict(features []float64) (value float64, clusterID int, confidence float64, err error) {
	cl := m.Clusterer()
	if cl == nil || m.Regressor == nil {
		return 0, 0, 0, fmt.Errorf("model %s has no fitted clustering state", m.ID)
	}

	scaled := m.Scaler.TransformOne(features)
	clusterID = cl.Assign(scaled)
	value, _ = m.Regressor.Predict(scaled, clusterID)
	confidence = m.Regressor.Confidence(scaled, clusterID, cl.Representative(clusterID))
	return value, clusterID, confidence, nil
}

package train

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prism-predictor/internal/progress"
	"prism-predictor/internal/store"
)

// Trainer runs the optimization loop and packages the winning pipeline
// into a model artifact.
type Trainer struct {
	space SearchSpace
	cfg   Config
	log   *zap.Logger
	sink  progress.Sink
}

// NewTrainer creates a trainer. A zero-value space or config falls back
// to defaults.
func NewTrainer(space SearchSpace, cfg Config, log *zap.Logger, sink progress.Sink) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	if len(space.Algorithms) == 0 {
		space = DefaultSearchSpace()
	}
	if cfg.Trials <= 0 {
		cfg = DefaultConfig()
	}
	return &Trainer{space: space, cfg: cfg, log: log, sink: sink}
}

// Train optimizes over (X, y) and returns the best trial's pipeline as an
// unsaved artifact, plus the full trial history. On cancellation after at
// least one successful trial, the best-so-far model is still returned.
func (t *Trainer) Train(ctx context.Context, X [][]float64, y []float64) (*store.Model, *Result, error) {
	opt := NewOptimizer(t.space, t.cfg, t.log, t.sink)
	res, err := opt.Run(ctx, X, y)
	if err != nil {
		return nil, res, err
	}

	p := res.Best.Params
	meta := store.Metadata{
		CreatedAt:       time.Now(),
		SampleCount:     len(X),
		TrainCount:      res.TrainCount,
		ValCount:        res.ValCount,
		ValMAE:          res.Best.Score,
		SkippedClusters: res.fit.regressor.Skipped,
	}
	hyper := store.Hyperparams{
		Algorithm: p.Algorithm,
		K:         p.K,
		Kernel:    p.Kernel,
		Gamma:     p.Gamma,
		Lambda:    p.Lambda,
	}

	model, err := store.NewModel(hyper, res.fit.scaler, res.fit.clusterer, res.fit.regressor, meta)
	if err != nil {
		return nil, res, fmt.Errorf("package model: %w", err)
	}

	t.log.Info("training complete",
		zap.Float64("val_mae", res.Best.Score),
		zap.Int("trials", len(res.History)),
		zap.Int("clusters", res.fit.clusterer.NumClusters()))
	return model, res, nil
}

// TrainAndSave trains and persists the artifact with its optimization
// history, returning the assigned model id.
func (t *Trainer) TrainAndSave(ctx context.Context, st *store.Store, X [][]float64, y []float64) (string, *Result, error) {
	model, res, err := t.Train(ctx, X, y)
	if err != nil {
		return "", res, err
	}
	id, err := st.Save(model, res.History)
	if err != nil {
		return "", res, err
	}
	return id, res, nil
}

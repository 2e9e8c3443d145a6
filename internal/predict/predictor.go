// Package predict maps measured incidence/deviation data to a refractive
// index estimate using a loaded model artifact.
package predict

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prism-predictor/internal/curve"
	"prism-predictor/internal/feature"
	"prism-predictor/internal/progress"
	"prism-predictor/internal/store"
)

// ErrNoModelLoaded is returned when prediction is requested before a
// trained model has been loaded. Recoverable: load a model and retry.
var ErrNoModelLoaded = errors.New("no model loaded")

// Result is one prediction: the estimated index, a [0,1] confidence, and
// which cluster/model produced it.
type Result struct {
	RefractiveIndex float64 `json:"refractive_index"`
	Confidence      float64 `json:"confidence"`
	ClusterID       int     `json:"cluster_id"`
	ModelID         string  `json:"model_id"`
}

// BatchItem pairs one input with its result or failure. A failed item
// never aborts the rest of the batch.
type BatchItem struct {
	Path   string
	Result Result
	Err    error
}

// Predictor runs the import → render → extract → assign → regress chain.
// Every prediction is a pure function of (model, input); batch items
// share no mutable state.
type Predictor struct {
	ex    feature.Extractor
	model *store.Model
	opts  curve.ImportOptions
	log   *zap.Logger
	sink  progress.Sink
}

// NewPredictor creates a predictor with no model loaded.
func NewPredictor(ex feature.Extractor, opts curve.ImportOptions, log *zap.Logger, sink progress.Sink) *Predictor {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MinPoints <= 0 {
		opts = curve.DefaultImportOptions()
	}
	return &Predictor{ex: ex, opts: opts, log: log, sink: sink}
}

// SetModel installs a trained model for subsequent predictions.
func (p *Predictor) SetModel(m *store.Model) {
	p.model = m
}

// LoadModel loads a model from the store and installs it.
func (p *Predictor) LoadModel(st *store.Store, id string) error {
	m, err := st.Load(id)
	if err != nil {
		return err
	}
	p.model = m
	p.log.Info("model loaded", zap.String("id", m.ID), zap.Float64("val_mae", m.Meta.ValMAE))
	return nil
}

// Model returns the currently loaded model, or nil.
func (p *Predictor) Model() *store.Model {
	return p.model
}

// PredictCurve predicts from an already-imported curve.
func (p *Predictor) PredictCurve(c curve.Curve) (Result, error) {
	if p.model == nil {
		return Result{}, ErrNoModelLoaded
	}

	vec, err := p.ex.Extract(curve.Render(c))
	if err != nil {
		return Result{}, fmt.Errorf("extract features: %w", err)
	}

	value, clusterID, conf, err := p.model.Predict(vec)
	if err != nil {
		return Result{}, err
	}
	return Result{
		RefractiveIndex: value,
		Confidence:      conf,
		ClusterID:       clusterID,
		ModelID:         p.model.ID,
	}, nil
}

// PredictPoints imports raw measured points and predicts.
func (p *Predictor) PredictPoints(points []curve.Point) (Result, error) {
	if p.model == nil {
		return Result{}, ErrNoModelLoaded
	}
	c, err := curve.Import(points, p.opts)
	if err != nil {
		return Result{}, err
	}
	return p.PredictCurve(c)
}

// PredictFile parses a raw measured-data file and predicts. Malformed
// lines are logged with their line numbers but only starve the import if
// too few valid points remain.
func (p *Predictor) PredictFile(path string) (Result, error) {
	if p.model == nil {
		return Result{}, ErrNoModelLoaded
	}

	points, bad, err := curve.ParseFile(path)
	if err != nil {
		return Result{}, err
	}
	for _, le := range bad {
		p.log.Warn("bad data line", zap.String("path", path),
			zap.Int("line", le.Line), zap.Error(le.Err))
	}
	return p.PredictPoints(points)
}

// PredictBatch predicts every file, in parallel, isolating per-item
// failures. Results are returned in input order regardless of completion
// order, and the batch call itself only fails when no model is loaded.
func (p *Predictor) PredictBatch(ctx context.Context, paths []string, parallelism int) ([]BatchItem, error) {
	if p.model == nil {
		return nil, ErrNoModelLoaded
	}
	if parallelism < 1 {
		parallelism = 4
	}

	items := make([]BatchItem, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, path := range paths {
		g.Go(func() error {
			items[i].Path = path
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			res, err := p.PredictFile(path)
			if err != nil {
				items[i].Err = fmt.Errorf("%s: %w", path, err)
				p.log.Warn("batch item failed", zap.String("path", path), zap.Error(err))
			} else {
				items[i].Result = res
			}
			p.sink.Emit(progress.Event{Stage: progress.StageBatch, Current: i + 1, Total: len(paths),
				Message: path})
			return nil
		})
	}
	_ = g.Wait()
	return items, nil
}

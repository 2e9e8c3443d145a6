// Package prism generates theoretical incidence/deviation curves for a
// sweep of candidate refractive indices and rasterizes each one for the
// downstream feature pipeline.
package prism

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"prism-predictor/internal/curve"
	"prism-predictor/internal/progress"
	"prism-predictor/internal/storage"
	"prism-predictor/pkg/optics"
)

// ErrInvalidRange is returned for an empty index interval or a
// non-positive step.
var ErrInvalidRange = errors.New("invalid refractive index range")

// Params configures the incidence-angle sweep used for every simulated
// curve. The apex angle is deliberately a parameter: the geometry
// convention is validated against sample data, not hard-coded.
type Params struct {
	ApexAngleDeg  float64
	StartAngleDeg float64
	StepDeg       float64
	Steps         int
}

// DefaultParams returns the standard sweep: a 60° prism sampled from 44°
// in 0.5° steps, 73 samples (44°..80°).
func DefaultParams() Params {
	return Params{
		ApexAngleDeg:  60,
		StartAngleDeg: 44,
		StepDeg:       0.5,
		Steps:         73,
	}
}

// WithApexAngle returns a copy of params with a different prism apex angle.
func (p Params) WithApexAngle(deg float64) Params {
	p.ApexAngleDeg = deg
	return p
}

// Curve computes the theoretical deviation curve for refractive index n
// across the full sweep. Fails if any incidence angle in the sweep hits
// total internal reflection, since a partial curve is not comparable to
// complete ones.
func (p Params) Curve(n float64) (curve.Curve, error) {
	points := make([]curve.Point, 0, p.Steps)
	for i := 0; i < p.Steps; i++ {
		inc := p.StartAngleDeg + float64(i)*p.StepDeg
		if inc > curve.DomainMaxDeg {
			break
		}
		dev, err := optics.Deviation(n, inc, p.ApexAngleDeg)
		if err != nil {
			return curve.Curve{}, fmt.Errorf("n=%.4f at i1=%.1f°: %w", n, inc, err)
		}
		points = append(points, curve.Point{Incidence: inc, Deviation: dev})
	}
	return curve.New(points)
}

// Sample is one simulated curve with its ground-truth index and, when the
// simulator writes images, the path of the rendered PNG.
type Sample struct {
	Index     float64
	Curve     curve.Curve
	ImagePath string
}

// SkippedIndex records a candidate index dropped from the sweep because no
// physically valid deviation exists across the full incidence range.
type SkippedIndex struct {
	Index  float64
	Reason string
}

// Result holds the outcome of a simulation run, including which candidate
// indices were physically invalid and whether the run was interrupted.
type Result struct {
	Samples     []Sample
	Skipped     []SkippedIndex
	Interrupted bool
}

// Simulator generates theoretical curves and writes one image per sampled
// index into the template directory.
type Simulator struct {
	params Params
	dir    string
	log    *zap.Logger
	sink   progress.Sink
}

// NewSimulator creates a simulator writing into templateDir. The directory
// must already exist and be writable.
func NewSimulator(params Params, templateDir string, log *zap.Logger, sink progress.Sink) (*Simulator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := storage.CheckWritable(templateDir); err != nil {
		return nil, err
	}
	return &Simulator{params: params, dir: templateDir, log: log, sink: sink}, nil
}

// Generate sweeps refractive indices over the half-open interval [lo, hi)
// at the given step, rendering and writing one curve image per index.
// Indices hitting total internal reflection are skipped and enumerated in
// the result. Cancellation is honored between indices; partial results are
// returned with Interrupted set.
func (s *Simulator) Generate(ctx context.Context, lo, hi, step float64) (*Result, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %.4g", ErrInvalidRange, step)
	}
	if hi <= lo {
		return nil, fmt.Errorf("%w: [%.4f, %.4f)", ErrInvalidRange, lo, hi)
	}

	total := int((hi - lo) / step)
	if lo+float64(total)*step < hi-1e-12 {
		total++
	}
	s.log.Info("generating theoretical curves",
		zap.Float64("lo", lo), zap.Float64("hi", hi), zap.Float64("step", step),
		zap.Int("count", total))

	res := &Result{}
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			s.log.Info("simulation interrupted", zap.Int("generated", len(res.Samples)))
			res.Interrupted = true
			s.sink.Emit(progress.Event{Stage: progress.StageSimulate, Current: i, Total: total,
				Message: "simulation interrupted"})
			return res, nil
		}

		n := lo + float64(i)*step
		c, err := s.params.Curve(n)
		if err != nil {
			// TIR at this index: not fatal for the sweep.
			s.log.Warn("skipping physically invalid index", zap.Float64("n", n), zap.Error(err))
			res.Skipped = append(res.Skipped, SkippedIndex{Index: n, Reason: err.Error()})
			continue
		}

		path := filepath.Join(s.dir, fmt.Sprintf("Rn_%.3f.png", n))
		if err := curve.WritePNG(path, c); err != nil {
			return nil, err
		}
		res.Samples = append(res.Samples, Sample{Index: n, Curve: c, ImagePath: path})

		s.sink.Emit(progress.Event{Stage: progress.StageSimulate, Current: i + 1, Total: total,
			Message: fmt.Sprintf("n=%.3f", n)})
	}

	s.log.Info("simulation complete",
		zap.Int("generated", len(res.Samples)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

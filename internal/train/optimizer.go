package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"prism-predictor/internal/cluster"
	"prism-predictor/internal/progress"
	"prism-predictor/internal/regress"
)

var (
	// ErrTrainingAborted is returned when a run is cancelled before any
	// trial completes successfully. Cancellation after a successful trial
	// is not an error: the best-so-far result is returned.
	ErrTrainingAborted = errors.New("training aborted")

	// ErrNoValidConfiguration is returned when every trial failed, e.g.
	// because no sampled configuration produced a cluster with enough
	// samples.
	ErrNoValidConfiguration = errors.New("no valid configuration found")
)

// SearchSpace bounds the hyperparameter search.
type SearchSpace struct {
	Algorithms []cluster.Kind
	KMin, KMax int
	Kernels    []regress.KernelKind
	GammaMin   float64
	GammaMax   float64
	LambdaMin  float64
	LambdaMax  float64
}

// DefaultSearchSpace mirrors the tuning ranges the pipeline was designed
// around: 2-5 clusters, RBF or linear kernels, log-scale kernel widths
// and regularization.
func DefaultSearchSpace() SearchSpace {
	return SearchSpace{
		Algorithms: []cluster.Kind{cluster.KindKMeans, cluster.KindSOM},
		KMin:       2,
		KMax:       5,
		Kernels:    []regress.KernelKind{regress.KernelRBF, regress.KernelLinear},
		GammaMin:   1e-4,
		GammaMax:   10,
		LambdaMin:  1e-6,
		LambdaMax:  1,
	}
}

// Config controls an optimization run.
type Config struct {
	Trials            int
	WarmupTrials      int // random trials before guided sampling kicks in
	Seed              uint64
	ValFraction       float64
	MinClusterSamples int
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		Trials:            40,
		WarmupTrials:      10,
		Seed:              42,
		ValFraction:       0.2,
		MinClusterSamples: regress.DefaultMinClusterSamples,
	}
}

// TrialParams is one sampled hyperparameter configuration.
type TrialParams struct {
	Algorithm cluster.Kind       `json:"algorithm"`
	K         int                `json:"k"`
	Kernel    regress.KernelKind `json:"kernel"`
	Gamma     float64            `json:"gamma"`
	Lambda    float64            `json:"lambda"`
}

// Trial records one evaluated configuration. Failed trials keep an
// infinite score and the failure reason.
type Trial struct {
	Number  int           `json:"number"`
	Params  TrialParams   `json:"params"`
	Score   float64       `json:"score"` // validation MAE
	Failed  bool          `json:"failed"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// fitted bundles the components produced by evaluating one trial.
type fitted struct {
	scaler    cluster.Scaler
	clusterer cluster.Clusterer
	regressor *regress.ClusterRegressor
}

// Result is the outcome of an optimization run: the full ordered trial
// history and the best trial, with its fitted pipeline retained for
// packaging.
type Result struct {
	Best        *Trial
	History     []Trial
	Interrupted bool

	TrainCount int
	ValCount   int

	fit *fitted
}

// Optimizer performs a bounded sequential hyperparameter search: a random
// warmup phase with log-uniform sampling over the continuous parameters,
// then perturbation of the incumbent best. All trials score against one
// fixed train/validation split so scores are comparable.
type Optimizer struct {
	space SearchSpace
	cfg   Config
	log   *zap.Logger
	sink  progress.Sink
}

// NewOptimizer creates an optimizer over the given space.
func NewOptimizer(space SearchSpace, cfg Config, log *zap.Logger, sink progress.Sink) *Optimizer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Trials <= 0 {
		cfg = DefaultConfig()
	}
	return &Optimizer{space: space, cfg: cfg, log: log, sink: sink}
}

// Run executes the trial loop. Cancellation is checked between trials
// only; a cancelled run returns the partial history, and fails with
// ErrTrainingAborted only when nothing succeeded before cancellation.
func (o *Optimizer) Run(ctx context.Context, X [][]float64, y []float64) (*Result, error) {
	n := len(X)
	if n < 10 || n != len(y) {
		return nil, fmt.Errorf("%w: dataset has %d samples, need at least 10",
			regress.ErrInsufficientValidSamples, n)
	}

	rng := rand.New(rand.NewSource(o.cfg.Seed))

	// One split, reused by every trial.
	perm := rng.Perm(n)
	nVal := int(math.Round(o.cfg.ValFraction * float64(n)))
	if nVal < 1 {
		nVal = 1
	}
	valX, valY := gather(X, y, perm[:nVal])
	trainX, trainY := gather(X, y, perm[nVal:])

	// Small training sets cannot support the full cluster range.
	kMax := o.space.KMax
	if limit := len(trainX) / 5; limit < kMax {
		kMax = limit
	}
	if kMax < o.space.KMin {
		kMax = o.space.KMin
	}

	res := &Result{TrainCount: len(trainX), ValCount: len(valX)}
	samp := newSampler(o.space, kMax, rng)

	for t := 0; t < o.cfg.Trials; t++ {
		if ctx.Err() != nil {
			res.Interrupted = true
			o.log.Info("optimization interrupted", zap.Int("completed", len(res.History)))
			break
		}

		var params TrialParams
		if t < o.cfg.WarmupTrials || res.Best == nil {
			params = samp.random()
		} else {
			params = samp.perturb(res.Best.Params)
		}

		start := time.Now()
		score, fit, err := o.evaluate(params, trainX, trainY, valX, valY)
		trial := Trial{Number: t, Params: params, Score: score, Elapsed: time.Since(start)}
		if err != nil {
			// A configuration producing no valid cluster is absorbed and
			// penalized; other configurations may still succeed.
			trial.Failed = true
			trial.Score = math.Inf(1)
			trial.Reason = err.Error()
			o.log.Warn("trial failed", zap.Int("trial", t), zap.Error(err))
		} else if res.Best == nil || score < res.Best.Score {
			res.Best = &trial
			res.fit = fit
			o.log.Info("new best trial", zap.Int("trial", t),
				zap.Float64("val_mae", score), zap.Any("params", params))
		}
		res.History = append(res.History, trial)

		o.sink.Emit(progress.Event{Stage: progress.StageTraining, Current: t + 1, Total: o.cfg.Trials,
			Message: fmt.Sprintf("trial %d: %s", t, trialSummary(trial))})
	}

	if res.Best == nil {
		if res.Interrupted {
			return res, fmt.Errorf("%w: cancelled before any successful trial", ErrTrainingAborted)
		}
		return res, fmt.Errorf("%w: all %d trials failed", ErrNoValidConfiguration, len(res.History))
	}
	return res, nil
}

// evaluate fits the full pipeline under one configuration and scores it
// on the held-out split.
func (o *Optimizer) evaluate(p TrialParams, trainX [][]float64, trainY []float64,
	valX [][]float64, valY []float64) (float64, *fitted, error) {

	var sc cluster.Scaler
	scaledTrain, err := sc.Fit(trainX)
	if err != nil {
		return 0, nil, err
	}

	cl, err := cluster.New(p.Algorithm, p.K, int64(o.cfg.Seed))
	if err != nil {
		return 0, nil, err
	}
	assignments, err := cl.Fit(scaledTrain)
	if err != nil {
		return 0, nil, err
	}

	reg := regress.NewClusterRegressor(
		regress.KRRParams{Kernel: p.Kernel, Gamma: p.Gamma, Lambda: p.Lambda},
		o.cfg.MinClusterSamples)
	if err := reg.Fit(scaledTrain, trainY, assignments, representatives(cl)); err != nil {
		return 0, nil, err
	}

	scaledVal := sc.Transform(valX)
	valAssign := make([]int, len(scaledVal))
	for i, x := range scaledVal {
		valAssign[i] = cl.Assign(x)
	}
	score, err := reg.EvaluateValidation(scaledVal, valY, valAssign)
	if err != nil {
		return 0, nil, err
	}

	return score, &fitted{scaler: sc, clusterer: cl, regressor: reg}, nil
}

// sampler draws hyperparameter configurations: log-uniform over the
// continuous axes, uniform over the discrete ones, and gaussian
// perturbation in log space around an incumbent.
type sampler struct {
	space   SearchSpace
	kMax    int
	rng     *rand.Rand
	gamma   distuv.Uniform
	lambda  distuv.Uniform
	perturb distuv.Normal
}

func newSampler(space SearchSpace, kMax int, rng *rand.Rand) *sampler {
	src := rand.NewSource(rng.Uint64())
	return &sampler{
		space:   space,
		kMax:    kMax,
		rng:     rng,
		gamma:   distuv.Uniform{Min: math.Log(space.GammaMin), Max: math.Log(space.GammaMax), Src: src},
		lambda:  distuv.Uniform{Min: math.Log(space.LambdaMin), Max: math.Log(space.LambdaMax), Src: src},
		perturb: distuv.Normal{Mu: 0, Sigma: 0.5, Src: src},
	}
}

func (s *sampler) random() TrialParams {
	return TrialParams{
		Algorithm: s.space.Algorithms[s.rng.Intn(len(s.space.Algorithms))],
		K:         s.space.KMin + s.rng.Intn(s.kMax-s.space.KMin+1),
		Kernel:    s.space.Kernels[s.rng.Intn(len(s.space.Kernels))],
		Gamma:     math.Exp(s.gamma.Rand()),
		Lambda:    math.Exp(s.lambda.Rand()),
	}
}

// perturb explores around the incumbent: multiplicative noise on the
// continuous parameters, with an occasional jump back to pure random so
// the search cannot pin itself to a local optimum.
func (s *sampler) perturb(best TrialParams) TrialParams {
	if s.rng.Float64() < 0.2 {
		return s.random()
	}
	p := best
	p.Gamma = clampExp(math.Log(best.Gamma)+s.perturb.Rand(), s.gamma.Min, s.gamma.Max)
	p.Lambda = clampExp(math.Log(best.Lambda)+s.perturb.Rand(), s.lambda.Min, s.lambda.Max)
	if s.rng.Float64() < 0.3 {
		p.K = s.space.KMin + s.rng.Intn(s.kMax-s.space.KMin+1)
	}
	return p
}

func clampExp(logV, lo, hi float64) float64 {
	if logV < lo {
		logV = lo
	}
	if logV > hi {
		logV = hi
	}
	return math.Exp(logV)
}

func representatives(cl cluster.Clusterer) [][]float64 {
	reps := make([][]float64, cl.NumClusters())
	for i := range reps {
		reps[i] = cl.Representative(i)
	}
	return reps
}

func gather(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	gx := make([][]float64, len(idx))
	gy := make([]float64, len(idx))
	for i, j := range idx {
		gx[i] = X[j]
		gy[i] = y[j]
	}
	return gx, gy
}

func trialSummary(t Trial) string {
	if t.Failed {
		return "failed: " + t.Reason
	}
	return fmt.Sprintf("%s k=%d %s mae=%.5f", t.Params.Algorithm, t.Params.K, t.Params.Kernel, t.Score)
}

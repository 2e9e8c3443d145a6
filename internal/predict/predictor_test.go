package predict

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism-predictor/internal/cluster"
	"prism-predictor/internal/curve"
	"prism-predictor/internal/regress"
	"prism-predictor/internal/store"
	"prism-predictor/pkg/optics"
)

// stubExtractor derives features from raw image statistics: the fraction
// of colored pixels and the centroid of the drawn curve. Deterministic and
// cheap, with enough signal to separate curves of different indices.
type stubExtractor struct{}

func (stubExtractor) Dim() int { return 3 }

func (stubExtractor) Extract(img image.Image) ([]float64, error) {
	b := img.Bounds()
	var count, sumX, sumY float64
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x += 2 {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r < 0xe000 || g < 0xe000 || bl < 0xe000 {
				count++
				sumX += float64(x - b.Min.X)
				sumY += float64(y - b.Min.Y)
			}
		}
	}
	if count == 0 {
		return []float64{0, 0, 0}, nil
	}
	w := float64(b.Dx())
	h := float64(b.Dy())
	return []float64{count / (w * h / 4), sumX / count / w, sumY / count / h}, nil
}

// theoreticalPoints sweeps the deviation relation for one index.
func theoreticalPoints(t *testing.T, n, lo, hi, step float64) []curve.Point {
	t.Helper()
	var pts []curve.Point
	for inc := lo; inc <= hi+1e-9; inc += step {
		dev, err := optics.Deviation(n, inc, 60)
		require.NoError(t, err)
		pts = append(pts, curve.Point{Incidence: inc, Deviation: dev})
	}
	return pts
}

// trainedModel fits a small pipeline over stub-extracted features of
// simulated curves spanning the usual index range.
func trainedModel(t *testing.T, ex stubExtractor) *store.Model {
	t.Helper()

	var X [][]float64
	var y []float64
	for i := 0; i < 25; i++ {
		n := 1.40 + 0.01*float64(i)
		c, err := curve.New(theoreticalPoints(t, n, 45, 79.5, 0.5))
		require.NoError(t, err)
		vec, err := ex.Extract(curve.Render(c))
		require.NoError(t, err)
		X = append(X, vec)
		y = append(y, n)
	}

	var sc cluster.Scaler
	scaled, err := sc.Fit(X)
	require.NoError(t, err)
	cl, err := cluster.New(cluster.KindKMeans, 2, 17)
	require.NoError(t, err)
	labels, err := cl.Fit(scaled)
	require.NoError(t, err)

	reps := make([][]float64, cl.NumClusters())
	for i := range reps {
		reps[i] = cl.Representative(i)
	}
	reg := regress.NewClusterRegressor(regress.KRRParams{Kernel: regress.KernelRBF, Gamma: 1, Lambda: 1e-4}, 5)
	require.NoError(t, reg.Fit(scaled, y, labels, reps))
	_, err = reg.EvaluateValidation(scaled, y, labels)
	require.NoError(t, err)

	m, err := store.NewModel(
		store.Hyperparams{Algorithm: cluster.KindKMeans, K: 2, Kernel: regress.KernelRBF, Gamma: 1, Lambda: 1e-4},
		sc, cl, reg, store.Metadata{SampleCount: len(X)})
	require.NoError(t, err)
	m.ID = "model_test"
	return m
}

// writeDataFile writes a measured-data file for one index.
func writeDataFile(t *testing.T, dir, name string, n float64) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("# incidence deviation\n")
	for inc := 46.0; inc <= 76.0+1e-9; inc += 2 {
		dev, err := optics.Deviation(n, inc, 60)
		require.NoError(t, err)
		fmt.Fprintf(&sb, "%.2f %.4f\n", inc, dev)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func newLoadedPredictor(t *testing.T) *Predictor {
	t.Helper()
	var ex stubExtractor
	p := NewPredictor(ex, curve.ImportOptions{}, nil, nil)
	p.SetModel(trainedModel(t, ex))
	return p
}

func TestPredictRequiresModel(t *testing.T) {
	p := NewPredictor(stubExtractor{}, curve.ImportOptions{}, nil, nil)

	_, err := p.PredictPoints(theoreticalPoints(t, 1.5, 46, 76, 2))
	assert.ErrorIs(t, err, ErrNoModelLoaded)
	_, err = p.PredictFile("whatever.txt")
	assert.ErrorIs(t, err, ErrNoModelLoaded)
	_, err = p.PredictBatch(context.Background(), []string{"a"}, 2)
	assert.ErrorIs(t, err, ErrNoModelLoaded)
}

func TestPredictFile(t *testing.T) {
	p := newLoadedPredictor(t)
	path := writeDataFile(t, t.TempDir(), "measured.txt", 1.52)

	res, err := p.PredictFile(path)
	require.NoError(t, err)

	assert.Equal(t, "model_test", res.ModelID)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	// Measured data is resampled, so only a sanity bound holds here; the
	// tight accuracy check lives in TestPredictCurveKnownIndex.
	assert.Greater(t, res.RefractiveIndex, 1.0)
	assert.Less(t, res.RefractiveIndex, 2.0)
}

func TestPredictCurveKnownIndex(t *testing.T) {
	p := newLoadedPredictor(t)

	// A curve identical to a training sweep must predict its own index.
	c, err := curve.New(theoreticalPoints(t, 1.52, 45, 79.5, 0.5))
	require.NoError(t, err)

	res, err := p.PredictCurve(c)
	require.NoError(t, err)
	assert.InDelta(t, 1.52, res.RefractiveIndex, 0.05)
	assert.Greater(t, res.Confidence, 0.3)
}

func TestPredictFileMissing(t *testing.T) {
	p := newLoadedPredictor(t)
	_, err := p.PredictFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestPredictPointsInsufficientData(t *testing.T) {
	p := newLoadedPredictor(t)

	_, err := p.PredictPoints([]curve.Point{{Incidence: 50, Deviation: 40}, {Incidence: 60, Deviation: 39}})
	assert.ErrorIs(t, err, curve.ErrInsufficientData)
}

func TestPredictBatchIsolatesFailures(t *testing.T) {
	p := newLoadedPredictor(t)
	dir := t.TempDir()

	paths := make([]string, 10)
	for i := range paths {
		if i == 3 {
			// Two valid points plus garbage: parseable, but too sparse to
			// interpolate. Must not poison the rest of the batch.
			bad := filepath.Join(dir, "bad.txt")
			require.NoError(t, os.WriteFile(bad, []byte("50 40.1\n60 39.2\nnot a number\n"), 0644))
			paths[i] = bad
			continue
		}
		n := 1.45 + 0.01*float64(i)
		paths[i] = writeDataFile(t, dir, fmt.Sprintf("m%02d.txt", i), n)
	}

	items, err := p.PredictBatch(context.Background(), paths, 4)
	require.NoError(t, err)
	require.Len(t, items, 10)

	for i, item := range items {
		assert.Equal(t, paths[i], item.Path, "results must keep input order")
		if i == 3 {
			require.Error(t, item.Err)
			assert.ErrorIs(t, item.Err, curve.ErrInsufficientData)
			continue
		}
		require.NoError(t, item.Err)
		assert.Equal(t, "model_test", item.Result.ModelID)
		assert.Greater(t, item.Result.RefractiveIndex, 1.0)
		assert.Less(t, item.Result.RefractiveIndex, 2.0)
	}
}

func TestPredictBatchCancelled(t *testing.T) {
	p := newLoadedPredictor(t)
	path := writeDataFile(t, t.TempDir(), "m.txt", 1.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := p.PredictBatch(ctx, []string{path, path}, 2)
	require.NoError(t, err)
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}

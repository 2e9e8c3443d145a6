package curve

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism-predictor/pkg/optics"
)

func TestParseReportsBadLines(t *testing.T) {
	input := strings.Join([]string{
		"# comment line",
		"50.0 41.2",
		"not-a-number 42.0",
		"",
		"55.0, 40.8",
		"60.0\tbroken",
		"65.0;41.5",
	}, "\n")

	points, bad := Parse(bufio.NewScanner(strings.NewReader(input)))
	require.Len(t, points, 3)
	require.Len(t, bad, 2)

	// Line numbers point at the offending input lines.
	assert.Equal(t, 3, bad[0].Line)
	assert.Equal(t, 6, bad[1].Line)
}

func TestImportInsufficientData(t *testing.T) {
	opts := DefaultImportOptions()

	t.Run("too few points", func(t *testing.T) {
		_, err := Import([]Point{
			{Incidence: 50, Deviation: 41},
			{Incidence: 62, Deviation: 40},
		}, opts)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("narrow angular span", func(t *testing.T) {
		_, err := Import([]Point{
			{Incidence: 50, Deviation: 41},
			{Incidence: 52, Deviation: 40.5},
			{Incidence: 55, Deviation: 40.2},
		}, opts)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

// simulated produces theoretical points for import tests.
func simulated(t *testing.T, n float64, incidences []float64) []Point {
	t.Helper()
	pts := make([]Point, len(incidences))
	for i, inc := range incidences {
		dev, err := optics.Deviation(n, inc, 60)
		require.NoError(t, err)
		pts[i] = Point{Incidence: inc, Deviation: dev}
	}
	return pts
}

func TestImportResamplesOntoGrid(t *testing.T) {
	pts := simulated(t, 1.52, []float64{46, 50, 55, 60, 65, 70})

	c, err := Import(pts, DefaultImportOptions())
	require.NoError(t, err)

	// Grid-aligned within the measured range, none outside it.
	lo, hi := c.Span()
	assert.GreaterOrEqual(t, lo, 46.0)
	assert.LessOrEqual(t, hi, 70.0)
	for _, p := range c.Points {
		frac := (p.Incidence - 44) / 0.5
		assert.InDelta(t, frac, float64(int(frac+0.5)), 1e-9, "point off grid: %v", p)
	}

	// Interpolation tracks the physical curve closely on dense input.
	for _, p := range c.Points {
		want, err := optics.Deviation(1.52, p.Incidence, 60)
		require.NoError(t, err)
		assert.InDelta(t, want, p.Deviation, 0.1)
	}
}

func TestImportPhysicalExtension(t *testing.T) {
	pts := simulated(t, 1.52, []float64{46, 48, 50, 52, 54, 56, 58, 60})

	opts := DefaultImportOptions()
	opts.ExtendPhysical = true
	c, err := Import(pts, opts)
	require.NoError(t, err)

	_, hi := c.Span()
	assert.Equal(t, 80.0, hi, "extension should reach the domain bound")

	// Extended tail follows the deviation relation, not a runaway spline.
	dev, err := optics.Deviation(1.52, 80, 60)
	require.NoError(t, err)
	assert.InDelta(t, dev, c.Points[len(c.Points)-1].Deviation, 0.2)
}

func TestImportDeterministic(t *testing.T) {
	pts := simulated(t, 1.55, []float64{46, 51, 57, 63, 69, 75})

	a, err := Import(pts, DefaultImportOptions())
	require.NoError(t, err)
	b, err := Import(pts, DefaultImportOptions())
	require.NoError(t, err)
	assert.Equal(t, a.Points, b.Points)
}

func TestRenderDeterministic(t *testing.T) {
	pts := simulated(t, 1.55, []float64{46, 51, 57, 63, 69, 75})
	c, err := Import(pts, DefaultImportOptions())
	require.NoError(t, err)

	first, err := EncodePNG(c)
	require.NoError(t, err)
	second, err := EncodePNG(c)
	require.NoError(t, err)
	assert.Equal(t, first, second, "rendering must be byte-identical")
}

func TestRenderFixedSize(t *testing.T) {
	c, err := New(simulated(t, 1.5, []float64{46, 55, 65, 75}))
	require.NoError(t, err)

	img := Render(c)
	assert.Equal(t, ImageSizePx, img.Bounds().Dx())
	assert.Equal(t, ImageSizePx, img.Bounds().Dy())
}

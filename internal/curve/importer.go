package curve

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/interp"

	"prism-predictor/pkg/optics"
)

// ErrInsufficientData is returned when raw measured data has too few
// points or covers too narrow an angular range to interpolate reliably.
var ErrInsufficientData = errors.New("insufficient measured data")

// LineError records a raw-data line that failed to parse. Parsing
// continues past bad lines; the caller decides whether to surface them.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d (%q): %v", e.Line, e.Text, e.Err)
}

// ImportOptions configures resampling of raw measured points onto the
// simulator's regular incidence grid.
type ImportOptions struct {
	MinPoints  int     // minimum raw samples, default 3
	MinSpanDeg float64 // minimum incidence range, default 10

	// Resampling grid; defaults match the simulator sweep.
	GridStartDeg float64
	GridStepDeg  float64
	GridSteps    int

	// ExtendPhysical extends the curve beyond the last measured point up
	// to the domain bound using the prism deviation relation, with the
	// index estimated from the minimum-deviation formula. Plain spline
	// extrapolation diverges; the physical relation does not.
	ExtendPhysical bool
	ApexAngleDeg   float64
}

// DefaultImportOptions returns the standard import configuration.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		MinPoints:    3,
		MinSpanDeg:   10,
		GridStartDeg: 44,
		GridStepDeg:  0.5,
		GridSteps:    73,
		ApexAngleDeg: 60,
	}
}

// Parse reads whitespace- or comma-delimited (incidence, deviation) pairs,
// one per line. Blank lines and #-comments are ignored. Malformed lines
// are reported with their line number and skipped, never fatal.
func Parse(r *bufio.Scanner) ([]Point, []LineError) {
	var points []Point
	var bad []LineError

	lineNo := 0
	for r.Scan() {
		lineNo++
		text := strings.TrimSpace(r.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ' ' || c == '\t' || c == ',' || c == ';'
		})
		var nums []string
		for _, f := range fields {
			if f != "" {
				nums = append(nums, f)
			}
		}
		if len(nums) < 2 {
			bad = append(bad, LineError{Line: lineNo, Text: text,
				Err: fmt.Errorf("expected 2 numeric columns, got %d", len(nums))})
			continue
		}

		inc, err := strconv.ParseFloat(nums[0], 64)
		if err != nil {
			bad = append(bad, LineError{Line: lineNo, Text: text, Err: err})
			continue
		}
		dev, err := strconv.ParseFloat(nums[1], 64)
		if err != nil {
			bad = append(bad, LineError{Line: lineNo, Text: text, Err: err})
			continue
		}

		points = append(points, Point{Incidence: inc, Deviation: dev})
	}

	return points, bad
}

// ParseFile parses a raw measured-data text file.
func ParseFile(path string) ([]Point, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open measured data: %w", err)
	}
	defer f.Close()

	points, bad := Parse(bufio.NewScanner(f))
	return points, bad, nil
}

// Import resamples raw measured points onto the regular grid using a
// monotone cubic interpolant (Fritsch-Butland), so the result can be
// rendered on the same axes as theoretical curves.
func Import(points []Point, opts ImportOptions) (Curve, error) {
	if opts.MinPoints <= 0 {
		opts = DefaultImportOptions()
	}

	raw, err := New(points)
	if err != nil {
		return Curve{}, err
	}
	if len(raw.Points) < opts.MinPoints {
		return Curve{}, fmt.Errorf("%w: %d points, need at least %d",
			ErrInsufficientData, len(raw.Points), opts.MinPoints)
	}
	lo, hi := raw.Span()
	if hi-lo < opts.MinSpanDeg {
		return Curve{}, fmt.Errorf("%w: angular span %.1f° below minimum %.1f°",
			ErrInsufficientData, hi-lo, opts.MinSpanDeg)
	}

	xs := make([]float64, len(raw.Points))
	ys := make([]float64, len(raw.Points))
	for i, p := range raw.Points {
		xs[i] = p.Incidence
		ys[i] = p.Deviation
	}

	var fb interp.FritschButland
	if err := fb.Fit(xs, ys); err != nil {
		return Curve{}, fmt.Errorf("fit interpolant: %w", err)
	}

	// Estimated index for physical extension past the measured range.
	var estIndex float64
	if opts.ExtendPhysical {
		estIndex = optics.IndexFromMinDeviation(raw.MinDeviation(), opts.ApexAngleDeg)
	}

	var out []Point
	for i := 0; i < opts.GridSteps; i++ {
		x := opts.GridStartDeg + float64(i)*opts.GridStepDeg
		if x > DomainMaxDeg {
			break
		}
		switch {
		case x < lo:
			// No data below the measured range; skip rather than invent.
			continue
		case x <= hi:
			out = append(out, Point{Incidence: x, Deviation: fb.Predict(x)})
		case opts.ExtendPhysical:
			dev, err := optics.Deviation(estIndex, x, opts.ApexAngleDeg)
			if err != nil {
				continue
			}
			out = append(out, Point{Incidence: x, Deviation: dev})
		}
	}

	if len(out) < opts.MinPoints {
		return Curve{}, fmt.Errorf("%w: %d grid points after resampling",
			ErrInsufficientData, len(out))
	}
	return New(out)
}

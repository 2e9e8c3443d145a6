// Package curve holds the incidence/deviation curve representation shared
// by the simulator and the measured-data importer, plus the fixed-scale
// raster rendering both sides feed into feature extraction.
package curve

import (
	"fmt"
	"sort"
)

// Axis and domain constants shared by every rendered image. Theoretical
// and measured curves must be drawn on the same window or their features
// are not comparable.
const (
	DomainMinDeg = 0.0
	DomainMaxDeg = 80.0

	AxisMinDeg = 45.0
	AxisMaxDeg = 80.0

	ImageSizePx = 256
)

// Point is one measured or simulated (incidence, deviation) pair in
// degrees.
type Point struct {
	Incidence float64 `json:"incidence"`
	Deviation float64 `json:"deviation"`
}

// Curve is an ordered sequence of points, strictly increasing in
// incidence angle and bounded to the angular domain. Treat as immutable
// once built.
type Curve struct {
	Points []Point
}

// New validates and constructs a curve. Points are sorted by incidence
// angle; duplicate incidence angles and out-of-domain points are rejected.
func New(points []Point) (Curve, error) {
	if len(points) == 0 {
		return Curve{}, fmt.Errorf("curve: no points")
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Incidence < pts[j].Incidence })

	for i, p := range pts {
		if p.Incidence < DomainMinDeg || p.Incidence > DomainMaxDeg {
			return Curve{}, fmt.Errorf("curve: incidence %.2f outside domain [%.0f, %.0f]",
				p.Incidence, DomainMinDeg, DomainMaxDeg)
		}
		if i > 0 && pts[i-1].Incidence >= p.Incidence {
			return Curve{}, fmt.Errorf("curve: duplicate incidence angle %.4f", p.Incidence)
		}
	}

	return Curve{Points: pts}, nil
}

// Span returns the incidence-angle range covered by the curve.
func (c Curve) Span() (min, max float64) {
	if len(c.Points) == 0 {
		return 0, 0
	}
	return c.Points[0].Incidence, c.Points[len(c.Points)-1].Incidence
}

// MinDeviation returns the smallest deviation angle on the curve.
func (c Curve) MinDeviation() float64 {
	min := c.Points[0].Deviation
	for _, p := range c.Points[1:] {
		if p.Deviation < min {
			min = p.Deviation
		}
	}
	return min
}

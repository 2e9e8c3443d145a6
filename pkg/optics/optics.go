// Package optics provides the geometric relations of light passing through
// a triangular prism.
package optics

import (
	"errors"
	"math"
)

// ErrTotalInternalReflection is returned when no refracted ray exists for
// the given index and incidence angle.
var ErrTotalInternalReflection = errors.New("total internal reflection")

// Deviation computes the deviation angle (degrees) of a ray entering a
// prism of the given apex angle at the given incidence angle, for a medium
// of refractive index n.
//
// Geometry convention: r1 = asin(sin i1 / n), r2 = A - r1, i2 = asin(n sin r2),
// delta = i1 + i2 - A. All angles in degrees.
func Deviation(n, incidenceDeg, apexDeg float64) (float64, error) {
	sinR1 := math.Sin(radians(incidenceDeg)) / n
	if sinR1 > 1 || sinR1 < -1 {
		return 0, ErrTotalInternalReflection
	}
	r1 := degrees(math.Asin(sinR1))

	r2 := apexDeg - r1
	sinI2 := n * math.Sin(radians(r2))
	if sinI2 > 1 || sinI2 < -1 {
		return 0, ErrTotalInternalReflection
	}
	i2 := degrees(math.Asin(sinI2))

	return incidenceDeg + i2 - apexDeg, nil
}

// IndexFromMinDeviation inverts the minimum-deviation relation
// n = sin((A + dmin)/2) / sin(A/2) to estimate the refractive index from
// an observed minimum deviation angle.
func IndexFromMinDeviation(minDeviationDeg, apexDeg float64) float64 {
	return math.Sin(radians((apexDeg+minDeviationDeg)/2)) / math.Sin(radians(apexDeg/2))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

package curve

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// Render rasterizes a curve onto the fixed axis window. The output is a
// pure function of the curve: fixed size, fixed colors, no text, so two
// renders of the same curve are byte-identical after encoding.
func Render(c Curve) image.Image {
	dc := gg.NewContext(ImageSizePx, ImageSizePx)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Light gridlines every 5 degrees.
	dc.SetRGB255(225, 225, 225)
	dc.SetLineWidth(1)
	for a := AxisMinDeg; a <= AxisMaxDeg; a += 5 {
		x := mapX(a)
		dc.DrawLine(x, 0, x, ImageSizePx)
		y := mapY(a)
		dc.DrawLine(0, y, ImageSizePx, y)
	}
	dc.Stroke()

	// Axis frame.
	dc.SetRGB255(80, 80, 80)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(0.75, 0.75, ImageSizePx-1.5, ImageSizePx-1.5)
	dc.Stroke()

	// The curve itself.
	dc.SetRGB255(31, 119, 180)
	dc.SetLineWidth(2)
	first := true
	for _, p := range c.Points {
		x, y := mapX(p.Incidence), mapY(p.Deviation)
		if first {
			dc.MoveTo(x, y)
			first = false
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	return dc.Image()
}

// EncodePNG renders a curve and returns the encoded PNG bytes.
func EncodePNG(c Curve) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Render(c)); err != nil {
		return nil, fmt.Errorf("encode curve image: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePNG renders a curve to a PNG file.
func WritePNG(path string, c Curve) error {
	data, err := EncodePNG(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write curve image: %w", err)
	}
	return nil
}

func mapX(deg float64) float64 {
	return (deg - AxisMinDeg) / (AxisMaxDeg - AxisMinDeg) * ImageSizePx
}

func mapY(deg float64) float64 {
	// Image y grows downward.
	return ImageSizePx - (deg-AxisMinDeg)/(AxisMaxDeg-AxisMinDeg)*ImageSizePx
}

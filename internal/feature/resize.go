package feature

import (
	"image"

	"golang.org/x/image/draw"
)

// resizeSquare scales an image to size x size with Catmull-Rom filtering.
// Returns the input unchanged if it is already an RGBA of the right size.
func resizeSquare(img image.Image, size int) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		b := rgba.Bounds()
		if b.Dx() == size && b.Dy() == size {
			return rgba
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

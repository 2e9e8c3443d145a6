// Package feature turns curve images into fixed-length embedding vectors
// using a frozen convolutional backbone. The backbone is loaded once per
// process, shared read-only, and never fine-tuned, so extraction is a pure
// function of the image.
package feature

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ErrBackboneLoad is returned when the frozen backbone weights cannot be
// located or loaded. Fatal for the whole pipeline; surfaced at startup,
// never deferred to training time.
var ErrBackboneLoad = errors.New("backbone load failed")

// Extractor maps a curve image to an embedding vector. Implementations
// must be deterministic and safe for concurrent use.
type Extractor interface {
	Extract(img image.Image) ([]float64, error)
	Dim() int
}

// Options selects how the backbone is driven.
type Options struct {
	// Layer names the intermediate layer to read features from; empty
	// means the network's default output.
	Layer string
	// InputSize is the square input resolution fed to the network.
	InputSize int
}

// DefaultOptions matches a 128x128 input and the network's own output
// layer.
func DefaultOptions() Options {
	return Options{InputSize: 128}
}

// Backbone wraps a frozen DNN loaded through OpenCV. Weights are read
// once and never mutated; Forward is serialized internally because cv
// networks are not reentrant.
type Backbone struct {
	mu   sync.Mutex
	net  gocv.Net
	opts Options
	dim  int
}

// LoadBackbone loads frozen weights (ONNX) from path. Missing or
// unreadable weights fail immediately with ErrBackboneLoad.
func LoadBackbone(path string, opts Options) (*Backbone, error) {
	if opts.InputSize <= 0 {
		opts = DefaultOptions()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackboneLoad, err)
	}
	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s is not a readable network", ErrBackboneLoad, path)
	}
	return &Backbone{net: net, opts: opts}, nil
}

// Close releases the underlying network. Call once at process shutdown.
func (b *Backbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.net.Close()
}

// Dim returns the embedding length, known after the first extraction.
func (b *Backbone) Dim() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dim
}

// Extract runs the image through the frozen backbone and global-average
// pools the selected layer's activation into a flat vector.
func (b *Backbone) Extract(img image.Image) ([]float64, error) {
	resized := resizeSquare(img, b.opts.InputSize)

	mat, err := gocv.ImageToMatRGB(resized)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(b.opts.InputSize, b.opts.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.net.SetInput(blob, "")
	out := b.net.Forward(b.opts.Layer)
	defer out.Close()

	vec, err := globalAveragePool(out)
	if err != nil {
		return nil, err
	}
	b.dim = len(vec)
	return vec, nil
}

// globalAveragePool reduces an NCHW activation to one value per channel.
// Already-flat outputs (N x C) pass through unchanged.
func globalAveragePool(out gocv.Mat) ([]float64, error) {
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read activation: %w", err)
	}

	size := out.Size()
	switch len(size) {
	case 2:
		vec := make([]float64, size[1])
		for i := range vec {
			vec[i] = float64(data[i])
		}
		return vec, nil
	case 4:
		channels, spatial := size[1], size[2]*size[3]
		if spatial == 0 {
			return nil, fmt.Errorf("empty activation %v", size)
		}
		vec := make([]float64, channels)
		for c := 0; c < channels; c++ {
			var sum float64
			base := c * spatial
			for i := 0; i < spatial; i++ {
				sum += float64(data[base+i])
			}
			vec[c] = sum / float64(spatial)
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unexpected activation shape %v", size)
	}
}

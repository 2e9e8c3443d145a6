// Package train drives hyperparameter optimization over the
// cluster-regression pipeline and packages the winning configuration into
// a persistable model artifact.
package train

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"prism-predictor/internal/feature"
	"prism-predictor/internal/progress"
)

// Dataset is a labeled feature matrix extracted from a directory of
// simulated curve images.
type Dataset struct {
	X [][]float64
	Y []float64
}

// LoadDataset extracts features from every Rn_<index>.png in dir, taking
// the ground-truth refractive index from the filename. Unreadable files
// are logged and skipped; cancellation is honored between files.
func LoadDataset(ctx context.Context, dir string, ex feature.Extractor,
	log *zap.Logger, sink progress.Sink) (*Dataset, error) {

	if log == nil {
		log = zap.NewNop()
	}

	paths, err := filepath.Glob(filepath.Join(dir, "Rn_*.png"))
	if err != nil {
		return nil, fmt.Errorf("scan dataset dir: %w", err)
	}

	ds := &Dataset{}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		label, err := labelFromFilename(path)
		if err != nil {
			log.Warn("skipping dataset file", zap.String("path", path), zap.Error(err))
			continue
		}

		vec, err := extractFile(path, ex)
		if err != nil {
			log.Warn("skipping dataset file", zap.String("path", path), zap.Error(err))
			continue
		}

		ds.X = append(ds.X, vec)
		ds.Y = append(ds.Y, label)
		sink.Emit(progress.Event{Stage: progress.StageDataset, Current: i + 1, Total: len(paths),
			Message: filepath.Base(path)})
	}

	log.Info("dataset loaded", zap.Int("samples", len(ds.X)), zap.Int("files", len(paths)))
	return ds, nil
}

// labelFromFilename parses the refractive index out of Rn_<index>.png.
func labelFromFilename(path string) (float64, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	raw, ok := strings.CutPrefix(name, "Rn_")
	if !ok {
		return 0, fmt.Errorf("filename %q lacks Rn_ prefix", name)
	}
	label, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("filename %q: %w", name, err)
	}
	return label, nil
}

func extractFile(path string, ex feature.Extractor) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ex.Extract(img)
}

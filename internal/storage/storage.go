// Package storage defines the contract with the directory-bootstrap
// collaborator: the core receives opaque writable directories and fails
// loudly when one is missing or unwritable.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnavailable is returned when a required storage directory is missing
// or not writable. The core never silently continues past it.
var ErrUnavailable = errors.New("storage unavailable")

// Dirs holds the root paths supplied by the bootstrap collaborator.
type Dirs struct {
	TemplateDir string // generated theoretical curve images
	ModelDir    string // persisted model artifacts
	OutputDir   string // prediction outputs
}

// CheckWritable verifies that dir exists, is a directory, and accepts
// writes.
func CheckWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnavailable, dir)
	}
	probe := filepath.Join(dir, ".write-probe")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("%w: %s not writable: %v", ErrUnavailable, dir, err)
	}
	os.Remove(probe)
	return nil
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"prism-predictor/internal/storage"
)

// ErrModelNotFound is returned when loading an id with no artifact.
var ErrModelNotFound = errors.New("model not found")

const (
	modelFile  = "model.json"
	trialsFile = "trials.json"
	scoresFile = "scores.json"
)

// Store owns a directory of model artifacts, one subdirectory per model
// id. Saves are published atomically: the artifact is written into a
// hidden temp directory and renamed into place, so a concurrent Load sees
// either a complete artifact or none.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore opens (and validates) the model directory.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := storage.CheckWritable(dir); err != nil {
		return nil, err
	}
	return &Store{dir: dir, log: log}, nil
}

// Save persists the model and its optimization history, returning the
// assigned id. Ids are timestamp-based with a numeric suffix on collision.
func (s *Store) Save(m *Model, history any) (string, error) {
	id := s.uniqueID(time.Now())
	m.ID = id
	m.Version = CurrentVersion
	if m.Meta.CreatedAt.IsZero() {
		m.Meta.CreatedAt = time.Now()
	}

	tmp := filepath.Join(s.dir, ".tmp-"+id)
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return "", fmt.Errorf("stage artifact: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := writeJSON(filepath.Join(tmp, modelFile), m); err != nil {
		return "", err
	}
	if history != nil {
		if err := writeJSON(filepath.Join(tmp, trialsFile), history); err != nil {
			return "", err
		}
	}

	final := filepath.Join(s.dir, id)
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("publish artifact: %w", err)
	}

	s.log.Info("model saved", zap.String("id", id), zap.Float64("val_mae", m.Meta.ValMAE))
	return id, nil
}

// Load reads a model artifact by id.
func (s *Store) Load(id string) (*Model, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id, modelFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
		}
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", id, err)
	}
	if m.Version > CurrentVersion {
		return nil, fmt.Errorf("artifact %s has unsupported version %d", id, m.Version)
	}
	return &m, nil
}

// List returns all saved model ids, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), modelFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a model artifact.
func (s *Store) Delete(id string) error {
	if _, err := os.Stat(filepath.Join(s.dir, id, modelFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	return os.RemoveAll(filepath.Join(s.dir, id))
}

// uniqueID builds a timestamped id, suffixed with a counter when a run
// starts twice in the same second.
func (s *Store) uniqueID(now time.Time) string {
	base := "model_" + now.Format("20060102_150405")
	id := base
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

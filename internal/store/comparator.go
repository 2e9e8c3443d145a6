package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Ranking is one model's position in a comparison.
type Ranking struct {
	ModelID   string    `json:"model_id"`
	Score     float64   `json:"score"` // validation MAE, lower is better
	CreatedAt time.Time `json:"created_at"`
}

type scoreEntry struct {
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Comparator ranks saved models by their recorded validation error.
// Scores are cached per model id; Compare only reads artifacts it has not
// seen before, never re-scanning unchanged ones.
type Comparator struct {
	store *Store
	cache map[string]scoreEntry
}

// NewComparator creates a comparator over the store, restoring any
// previously cached scores.
func NewComparator(s *Store) *Comparator {
	c := &Comparator{store: s, cache: map[string]scoreEntry{}}
	if data, err := os.ReadFile(c.cachePath()); err == nil {
		_ = json.Unmarshal(data, &c.cache)
	}
	return c
}

// Compare ranks the given models (all saved models when ids is empty) by
// validation error ascending, ties broken by more recent training time.
// Repeated calls with no new models yield an identical ordering.
func (c *Comparator) Compare(ids []string) ([]Ranking, error) {
	if len(ids) == 0 {
		all, err := c.store.List()
		if err != nil {
			return nil, err
		}
		ids = all
	}

	evaluated := false
	rankings := make([]Ranking, 0, len(ids))
	for _, id := range ids {
		entry, ok := c.cache[id]
		if !ok {
			m, err := c.store.Load(id)
			if err != nil {
				return nil, err
			}
			entry = scoreEntry{Score: m.Meta.ValMAE, CreatedAt: m.Meta.CreatedAt}
			c.cache[id] = entry
			evaluated = true
		}
		rankings = append(rankings, Ranking{ModelID: id, Score: entry.Score, CreatedAt: entry.CreatedAt})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score < rankings[j].Score
		}
		if !rankings[i].CreatedAt.Equal(rankings[j].CreatedAt) {
			return rankings[i].CreatedAt.After(rankings[j].CreatedAt)
		}
		return rankings[i].ModelID < rankings[j].ModelID
	})

	if evaluated {
		if err := c.persist(); err != nil {
			return nil, err
		}
	}
	return rankings, nil
}

// Invalidate drops a model's cached score, forcing re-evaluation on the
// next Compare.
func (c *Comparator) Invalidate(id string) {
	delete(c.cache, id)
}

func (c *Comparator) cachePath() string {
	return filepath.Join(c.store.dir, scoresFile)
}

func (c *Comparator) persist() error {
	return writeJSON(c.cachePath(), c.cache)
}

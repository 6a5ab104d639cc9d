// Package checkpoint selects the best trained checkpoint of an experiment and
// maps its weights onto the evaluation generator.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// IndexFile lists checkpoint paths with their validation score.
const IndexFile = "best_k_models.json"

var (
	ErrNoCheckpoint = errors.New("checkpoint: index is empty")
	ErrMissingFile  = errors.New("checkpoint: file not found")
)

// Index maps checkpoint file path to validation score (lower is better).
type Index map[string]float64

// LoadIndex reads <expDir>/best_k_models.json.
func LoadIndex(expDir string) (Index, error) {
	b, err := os.ReadFile(filepath.Join(expDir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("checkpoint: decode index: %w", err)
	}
	return idx, nil
}

// Best returns the path with the minimum score. Ties go to the
// lexicographically smallest path.
func (idx Index) Best() (string, error) {
	if len(idx) == 0 {
		return "", ErrNoCheckpoint
	}
	paths := make([]string, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	best := paths[0]
	for _, p := range paths[1:] {
		if idx[p] < idx[best] {
			best = p
		}
	}
	return best, nil
}

// BestPath loads the index of expDir, picks the best checkpoint and checks
// that the file exists.
func BestPath(expDir string) (string, error) {
	idx, err := LoadIndex(expDir)
	if err != nil {
		return "", err
	}
	p, err := idx.Best()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingFile, p)
		}
		return "", err
	}
	return p, nil
}

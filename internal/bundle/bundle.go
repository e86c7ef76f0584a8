// Package bundle persists the trained scoring pipeline and serves it
// through a lazy, cached loader.
package bundle

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"churn-intel/internal/dataset"
	"churn-intel/internal/model"
	"churn-intel/internal/preprocess"
)

var (
	// ErrModelUnavailable means no trained bundle exists on disk.
	ErrModelUnavailable = errors.New("no trained model bundle available")
	// ErrInvalidPipeline means a bundle was found but cannot be used.
	ErrInvalidPipeline = errors.New("model bundle is incomplete or corrupted")
)

// Pipeline couples the fitted transformer with the champion classifier
// so inference always applies the exact training-time encoding.
type Pipeline struct {
	Transformer *preprocess.ColumnTransformer
	Classifier  model.Classifier
}

// PredictProba transforms the table and scores every row.
func (p *Pipeline) PredictProba(t *dataset.Table) ([]float64, error) {
	if p.Transformer == nil || p.Classifier == nil {
		return nil, ErrInvalidPipeline
	}
	X, err := p.Transformer.Transform(t)
	if err != nil {
		return nil, fmt.Errorf("applying feature transform: %w", err)
	}
	return p.Classifier.PredictProba(X), nil
}

// Metadata describes the champion run the bundle came from.
type Metadata struct {
	AUCScore  float64
	KSStat    float64
	Engine    string
	Features  []string
	Version   string
	CreatedAt time.Time
}

// Bundle is the single persisted training artifact.
type Bundle struct {
	Pipeline *Pipeline
	Metadata Metadata
}

// Save writes the bundle atomically: encode to a sibling temp file,
// then rename over the target.
func Save(b *Bundle, path string) error {
	if b == nil || b.Pipeline == nil || b.Pipeline.Classifier == nil {
		return ErrInvalidPipeline
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating bundle directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return fmt.Errorf("creating temp bundle file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(b); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("flushing bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("installing bundle: %w", err)
	}
	return nil
}

// Load reads and validates a bundle from disk.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrModelUnavailable
		}
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()

	var b Bundle
	if err := gob.NewDecoder(f).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPipeline, err)
	}
	if b.Pipeline == nil || b.Pipeline.Classifier == nil || b.Pipeline.Transformer == nil {
		return nil, ErrInvalidPipeline
	}
	return &b, nil
}

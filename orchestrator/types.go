package orchestrator

import (
	"context"

	"github.com/maastricht-university/segan-eval/dataset"
)

// Dataset is an indexable test set of known length.
type Dataset interface {
	Len() int
	Item(idx int) (*dataset.Item, error)
}

// Generator enhances one window of samples.
type Generator interface {
	Forward(ctx context.Context, slice []float32) ([]float32, error)
}

// Aligner reorders estimated sources to best match the references and
// reports the loss of that permutation.
type Aligner interface {
	Align(ctx context.Context, est, refs [][]float32) (float64, [][]float32, error)
}

// MetricsEngine computes named quality metrics for one utterance, including
// the "input_" baselines of the unprocessed mixture.
type MetricsEngine interface {
	Compute(ctx context.Context, mix []float32, refs, est [][]float32, sampleRate int, metrics []string) (map[string]float64, error)
}

// Utterance is the metrics record of one test item.
type Utterance struct {
	Index   int
	MixPath string
	Metrics map[string]float64
}

// Restored holds the de-emphasised signals of one test item.
type Restored struct {
	Mixture   []float32
	Sources   [][]float32
	Estimates [][]float32 // aligned to Sources
}

// Summary maps metric name to its mean, and <name>_imp to the mean
// improvement over the input baseline.
type Summary map[string]float64

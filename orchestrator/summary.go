package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrMissingBaseline = errors.New("orchestrator: metric or its input baseline missing")
	ErrNoUtterances    = errors.New("orchestrator: no utterances evaluated")
)

// Accumulator collects utterance records for the tracked metrics.
type Accumulator struct {
	metrics []string
	rows    []Utterance
}

func NewAccumulator(metrics []string) *Accumulator {
	return &Accumulator{metrics: metrics}
}

// Add appends u. Every tracked metric and its input baseline must be present.
func (a *Accumulator) Add(u Utterance) error {
	for _, m := range a.metrics {
		for _, key := range []string{m, inputName(m)} {
			if _, ok := u.Metrics[key]; !ok {
				return fmt.Errorf("%w: %q for %s", ErrMissingBaseline, key, u.MixPath)
			}
		}
	}
	a.rows = append(a.rows, u)
	return nil
}

func (a *Accumulator) Len() int { return len(a.rows) }

func (a *Accumulator) Rows() []Utterance { return a.rows }

// Summary returns, per tracked metric, the mean value and the mean of
// (metric - input_metric) under <metric>_imp.
func (a *Accumulator) Summary() (Summary, error) {
	if len(a.rows) == 0 {
		return nil, ErrNoUtterances
	}
	out := make(Summary, 2*len(a.metrics))
	vals := make([]float64, len(a.rows))
	diffs := make([]float64, len(a.rows))
	for _, m := range a.metrics {
		in := inputName(m)
		for i, u := range a.rows {
			vals[i] = u.Metrics[m]
			diffs[i] = u.Metrics[m] - u.Metrics[in]
		}
		out[m] = stat.Mean(vals, nil)
		out[m+"_imp"] = stat.Mean(diffs, nil)
	}
	return out, nil
}

// columns lists the metric columns of the per-utterance table: input_<m>
// then <m> for every tracked metric, followed by any other reported metric
// in name order.
func (a *Accumulator) columns() []string {
	cols := make([]string, 0, 2*len(a.metrics))
	seen := map[string]bool{}
	for _, m := range a.metrics {
		cols = append(cols, inputName(m), m)
		seen[m], seen[inputName(m)] = true, true
	}
	var extra []string
	for _, u := range a.rows {
		for k := range u.Metrics {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// PrintSummary writes s to w, one metric per line in name order.
func PrintSummary(w io.Writer, s Summary) {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Overall metrics :")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, s[k])
	}
}

// Package dataset loads the SEGAN test set: a CSV descriptor listing the
// mixture and reference WAVs of every utterance.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/maastricht-university/segan-eval/audio"
	"github.com/maastricht-university/segan-eval/dsp"
)

// Item is one utterance ready for inference. Mixture holds the
// pre-emphasised mixture cut into windows; Sources holds the pre-emphasised
// full-length references.
type Item struct {
	Mixture     [][]float32
	Sources     [][]float32
	MixturePath string
}

// Length returns the unsliced length of the utterance.
func (it *Item) Length() int {
	if len(it.Sources) == 0 {
		return 0
	}
	return len(it.Sources[0])
}

// Options describes how the test set was produced at training time.
type Options struct {
	Task       string
	SampleRate int
	NSrc       int
	Window     int
	EmphCoeff  float64
}

type row struct {
	mixture string
	sources []string
}

// SEGAN is the on-disk test set. Items are decoded lazily.
type SEGAN struct {
	opts Options
	rows []row
}

// Open reads the descriptor in dir. It prefers <task>.csv and falls back to
// the only CSV file in the directory.
func Open(dir string, opts Options) (*SEGAN, error) {
	if opts.NSrc < 1 {
		return nil, fmt.Errorf("dataset: n_src must be positive, got %d", opts.NSrc)
	}
	if opts.Window <= 0 {
		opts.Window = dsp.DefaultWindow
	}
	if opts.EmphCoeff == 0 {
		opts.EmphCoeff = dsp.DefaultEmphCoeff
	}
	path, err := descriptor(dir, opts.Task)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := readRows(f, opts.NSrc)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return &SEGAN{opts: opts, rows: rows}, nil
}

func descriptor(dir, task string) (string, error) {
	if task != "" {
		p := filepath.Join(dir, task+".csv")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("dataset: no csv descriptor in %s", dir)
	}
	return "", fmt.Errorf("dataset: %d csv files in %s and no %s.csv", len(matches), dir, task)
}

func readRows(r io.Reader, nSrc int) ([]row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	mixCol, ok := col["mixture_path"]
	if !ok {
		return nil, fmt.Errorf("missing column mixture_path")
	}
	srcCols := make([]int, nSrc)
	for k := range srcCols {
		name := "source_" + strconv.Itoa(k+1) + "_path"
		c, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
		srcCols[k] = c
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rw := row{mixture: rec[mixCol], sources: make([]string, nSrc)}
		for k, c := range srcCols {
			rw.sources[k] = rec[c]
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

// Len returns the number of utterances.
func (d *SEGAN) Len() int { return len(d.rows) }

// Item decodes, pre-emphasises and slices utterance idx.
func (d *SEGAN) Item(idx int) (*Item, error) {
	if idx < 0 || idx >= len(d.rows) {
		return nil, fmt.Errorf("dataset: index %d out of range [0,%d)", idx, len(d.rows))
	}
	r := d.rows[idx]

	mix, err := d.load(r.mixture)
	if err != nil {
		return nil, err
	}
	sources := make([][]float32, len(r.sources))
	for k, p := range r.sources {
		s, err := d.load(p)
		if err != nil {
			return nil, err
		}
		if len(s) != len(mix) {
			return nil, fmt.Errorf("dataset: %s has %d samples, mixture has %d", p, len(s), len(mix))
		}
		sources[k] = dsp.PreEmphasis(s, d.opts.EmphCoeff)
	}

	return &Item{
		Mixture:     dsp.Slice(dsp.PreEmphasis(mix, d.opts.EmphCoeff), d.opts.Window),
		Sources:     sources,
		MixturePath: r.mixture,
	}, nil
}

func (d *SEGAN) load(path string) ([]float32, error) {
	w, err := audio.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if w.SampleRate != d.opts.SampleRate {
		return nil, fmt.Errorf("dataset: %s: sample rate %d, want %d", path, w.SampleRate, d.opts.SampleRate)
	}
	return w.Samples, nil
}

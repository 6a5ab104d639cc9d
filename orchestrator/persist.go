package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/maastricht-university/segan-eval/audio"
)

// Output file names under the experiment directory.
const (
	AllMetricsFile   = "all_metrics.csv"
	FinalMetricsFile = "final_metrics.json"
	ExamplesDir      = "examples"
)

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// record flattens u into the JSON form written next to each example.
func (u Utterance) record() map[string]any {
	out := make(map[string]any, len(u.Metrics)+1)
	for k, v := range u.Metrics {
		out[k] = v
	}
	out["mix_path"] = u.MixPath
	return out
}

// writeCSV writes one row per utterance with a leading unnamed index column
// and mix_path last.
func writeCSV(path string, acc *Accumulator) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cols := acc.columns()
	w := csv.NewWriter(f)
	header := append(append([]string{""}, cols...), "mix_path")
	if err := w.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i, u := range acc.Rows() {
		rec[0] = strconv.Itoa(i)
		for j, c := range cols {
			rec[j+1] = ""
			if v, ok := u.Metrics[c]; ok {
				rec[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		rec[len(rec)-1] = u.MixPath
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func persist(expDir string, acc *Accumulator, summary Summary) (csvPath, jsonPath string, err error) {
	csvPath = filepath.Join(expDir, AllMetricsFile)
	jsonPath = filepath.Join(expDir, FinalMetricsFile)
	if err = os.MkdirAll(expDir, 0o755); err != nil {
		return "", "", err
	}
	if err = writeCSV(csvPath, acc); err != nil {
		return "", "", fmt.Errorf("write %s: %w", csvPath, err)
	}
	if err = writeJSON(jsonPath, summary); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonPath, err)
	}
	return csvPath, jsonPath, nil
}

// exportExample writes the restored signals and metrics of item idx to
// <expDir>/examples/ex_<idx>/.
func exportExample(expDir string, idx, sampleRate int, r Restored, u Utterance) (string, error) {
	dir := filepath.Join(expDir, ExamplesDir, fmt.Sprintf("ex_%d", idx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := audio.WriteMono(filepath.Join(dir, "mixture.wav"), r.Mixture, sampleRate); err != nil {
		return "", err
	}
	for k, s := range r.Sources {
		if err := audio.WriteMono(filepath.Join(dir, fmt.Sprintf("s%d.wav", k)), s, sampleRate); err != nil {
			return "", err
		}
	}
	for k, s := range r.Estimates {
		if err := audio.WriteMono(filepath.Join(dir, fmt.Sprintf("s%d_estimate.wav", k)), s, sampleRate); err != nil {
			return "", err
		}
	}
	if err := writeJSON(filepath.Join(dir, "metrics.json"), u.record()); err != nil {
		return "", err
	}
	return dir, nil
}

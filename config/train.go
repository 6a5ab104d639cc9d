package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TrainConfFile is the generator training configuration saved in every experiment.
const TrainConfFile = "conf_g.yml"

var ErrMissingTrainConf = errors.New("config: training config not found")

type Data struct {
	SampleRate int    `yaml:"sample_rate"`
	Task       string `yaml:"task"`
	NSrc       int    `yaml:"n_src"`
}

// TrainConf is the subset of the training configuration the evaluation
// reads. Raw keeps the whole document for the model factory.
type TrainConf struct {
	Data Data
	Raw  map[string]any
}

// LoadTrain reads <expDir>/conf_g.yml.
func LoadTrain(expDir string) (*TrainConf, error) {
	path := filepath.Join(expDir, TrainConfFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingTrainConf, path)
		}
		return nil, err
	}
	defer f.Close()

	var node yaml.Node
	if err := yaml.NewDecoder(f).Decode(&node); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	var doc struct {
		Data Data `yaml:"data"`
	}
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	raw := map[string]any{}
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	tc := &TrainConf{Data: doc.Data, Raw: raw}
	switch {
	case tc.Data.SampleRate <= 0:
		return nil, fmt.Errorf("config: %s: data.sample_rate must be positive", path)
	case tc.Data.NSrc <= 0:
		return nil, fmt.Errorf("config: %s: data.n_src must be positive", path)
	case tc.Data.Task == "":
		return nil, fmt.Errorf("config: %s: data.task is empty", path)
	}
	return tc, nil
}

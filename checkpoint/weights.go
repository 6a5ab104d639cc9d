package checkpoint

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrShapeMismatch is returned when checkpoint and model disagree on a tensor.
var ErrShapeMismatch = errors.New("checkpoint: weight shape mismatch")

// Component is the top-level sub-network a weight belongs to in a GAN
// training checkpoint.
type Component int

const (
	Generator Component = iota
	Discriminator
)

var componentNames = map[string]Component{
	"generator":     Generator,
	"discriminator": Discriminator,
}

func (c Component) String() string {
	switch c {
	case Generator:
		return "generator"
	case Discriminator:
		return "discriminator"
	}
	return fmt.Sprintf("Component(%d)", int(c))
}

// WeightName is a checkpoint key split into its component and the parameter
// path inside that component.
type WeightName struct {
	Component Component
	Param     string
}

// ParseWeightName splits "generator.enc.0.weight" into {Generator, "enc.0.weight"}.
func ParseWeightName(key string) (WeightName, error) {
	head, param, ok := strings.Cut(key, ".")
	if !ok || param == "" {
		return WeightName{}, fmt.Errorf("checkpoint: weight %q has no component prefix", key)
	}
	c, ok := componentNames[head]
	if !ok {
		return WeightName{}, fmt.Errorf("checkpoint: weight %q has unknown component %q", key, head)
	}
	return WeightName{Component: c, Param: param}, nil
}

func (n WeightName) String() string { return n.Component.String() + "." + n.Param }

// Tensor describes a named parameter and its shape.
type Tensor struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

// GeneratorMapping builds the checkpoint-key to model-parameter mapping used
// to load a generator. Discriminator weights are dropped. The load is strict:
// every model parameter must be provided with the same shape and no generator
// weight may be left over.
func GeneratorMapping(weights, params []Tensor) (map[string]string, error) {
	want := make(map[string][]int, len(params))
	for _, p := range params {
		want[p.Name] = p.Shape
	}

	mapping := make(map[string]string, len(params))
	var unexpected []string
	for _, w := range weights {
		name, err := ParseWeightName(w.Name)
		if err != nil {
			return nil, err
		}
		if name.Component != Generator {
			continue
		}
		shape, ok := want[name.Param]
		if !ok {
			unexpected = append(unexpected, w.Name)
			continue
		}
		if !slices.Equal(shape, w.Shape) {
			return nil, fmt.Errorf("%w: %s is %v, model expects %v", ErrShapeMismatch, w.Name, w.Shape, shape)
		}
		mapping[w.Name] = name.Param
	}

	var missing []string
	for _, p := range params {
		key := WeightName{Component: Generator, Param: p.Name}.String()
		if _, ok := mapping[key]; !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		slices.Sort(missing)
		slices.Sort(unexpected)
		return nil, fmt.Errorf("checkpoint: strict load failed: missing %v, unexpected %v", missing, unexpected)
	}
	return mapping, nil
}

package dsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeEmphasisRecoversImpulse(t *testing.T) {
	x := []float32{1, 0, 0, 0}
	pre := PreEmphasis(x, DefaultEmphCoeff)
	assert.InDeltaSlice(t, []float32{1, -0.95, 0, 0}, pre, 1e-7)

	got := DeEmphasis(pre, DefaultEmphCoeff)
	assert.InDeltaSlice(t, x, got, 1e-5)
}

func TestDeEmphasisImpulseResponse(t *testing.T) {
	got := DeEmphasis([]float32{1, 0, 0}, 0.5)
	assert.Equal(t, []float32{1, 0.5, 0.25}, got)
}

func TestDeEmphasisIsLeftInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, coeff := range []float64{0.1, 0.5, 0.95, 0.99} {
		x := make([]float32, 4096)
		for i := range x {
			x[i] = rng.Float32()*2 - 1
		}
		got := DeEmphasis(PreEmphasis(x, coeff), coeff)
		require.Len(t, got, len(x))
		assert.InDeltaSlice(t, x, got, 1e-4, "coeff=%v", coeff)
	}
}

func TestDeEmphasisDeterministic(t *testing.T) {
	x := []float32{0.3, -0.2, 0.7, 0.1, -0.9}
	assert.Equal(t, DeEmphasis(x, 0.95), DeEmphasis(x, 0.95))
}

func TestDeEmphasisBatch(t *testing.T) {
	batch := [][]float32{{1, 0}, {0, 1}}
	got := DeEmphasisBatch(batch, 0.5)
	assert.Equal(t, [][]float32{{1, 0.5}, {0, 1}}, got)
	assert.Empty(t, DeEmphasis(nil, 0.5))
}

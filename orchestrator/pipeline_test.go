package orchestrator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/segan-eval/dataset"
	"github.com/maastricht-university/segan-eval/dsp"
)

const testWindow = 4

type memData struct {
	clean [][]float32
}

func (d *memData) Len() int { return len(d.clean) }

func (d *memData) Item(idx int) (*dataset.Item, error) {
	x := d.clean[idx]
	pre := dsp.PreEmphasis(x, dsp.DefaultEmphCoeff)
	return &dataset.Item{
		Mixture:     dsp.Slice(pre, testWindow),
		Sources:     [][]float32{pre},
		MixturePath: fmt.Sprintf("mix/%d.wav", idx),
	}, nil
}

type identityGen struct{ calls int }

func (g *identityGen) Forward(_ context.Context, s []float32) ([]float32, error) {
	g.calls++
	return append([]float32(nil), s...), nil
}

type identityAligner struct{}

func (identityAligner) Align(_ context.Context, est, _ [][]float32) (float64, [][]float32, error) {
	return -1, est, nil
}

type countingEngine struct {
	calls  int
	mixes  [][]float32
	ests   [][][]float32
	fail   int
	result func(call int) map[string]float64
}

func (e *countingEngine) Compute(_ context.Context, mix []float32, _, est [][]float32, sr int, metrics []string) (map[string]float64, error) {
	call := e.calls
	e.calls++
	if e.fail > 0 && e.calls == e.fail {
		return nil, errors.New("engine exploded")
	}
	e.mixes = append(e.mixes, mix)
	e.ests = append(e.ests, est)
	if e.result != nil {
		return e.result(call), nil
	}
	return map[string]float64{
		"si_sdr":       float64(2 * call),
		"input_si_sdr": float64(call),
		"stoi":         0.9,
		"input_stoi":   0.8,
	}, nil
}

func testData() *memData {
	return &memData{clean: [][]float32{
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		{1, 0, 0, 0},
		{-0.5, 0.25, 0.125},
	}}
}

func newTestPipeline(t *testing.T, nSave int, gen Generator, align Aligner, eng MetricsEngine) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	log, _ := test.NewNullLogger()
	p := NewPipeline(Options{
		ExpDir:     dir,
		SampleRate: 16000,
		Window:     testWindow,
		EmphCoeff:  dsp.DefaultEmphCoeff,
		Metrics:    []string{"si_sdr", "stoi"},
		NSaveEx:    nSave,
		Rand:       rand.New(rand.NewSource(3)),
		Log:        log,
	}, testData(), gen, align, eng)
	return p, dir
}

func TestRunEndToEnd(t *testing.T) {
	gen := &identityGen{}
	eng := &countingEngine{}
	p, dir := newTestPipeline(t, AllExamples, gen, identityAligner{}, eng)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3+1+1, gen.calls, "one forward pass per slice")
	assert.InDelta(t, 2.0, summary["si_sdr"], 1e-12)
	assert.InDelta(t, 1.0, summary["si_sdr_imp"], 1e-12)
	assert.InDelta(t, 0.9, summary["stoi"], 1e-12)
	assert.InDelta(t, 0.1, summary["stoi_imp"], 1e-12)

	// The engine only ever sees restored, full-length signals.
	for i, clean := range testData().clean {
		require.Len(t, eng.mixes[i], len(clean))
		assert.InDeltaSlice(t, clean, eng.mixes[i], 1e-5)
		require.Len(t, eng.ests[i], 1)
		assert.InDeltaSlice(t, clean, eng.ests[i][0], 1e-5)
	}

	var final map[string]float64
	b, err := os.ReadFile(filepath.Join(dir, FinalMetricsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &final))
	assert.Equal(t, map[string]float64(summary), final)

	f, err := os.Open(filepath.Join(dir, AllMetricsFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"", "input_si_sdr", "si_sdr", "input_stoi", "stoi", "mix_path"}, rows[0])
	assert.Equal(t, []string{"2", "2", "4", "0.8", "0.9", "mix/2.wav"}, rows[3])

	for i := 0; i < 3; i++ {
		ex := filepath.Join(dir, ExamplesDir, fmt.Sprintf("ex_%d", i))
		for _, name := range []string{"mixture.wav", "s0.wav", "s0_estimate.wav", "metrics.json"} {
			assert.FileExists(t, filepath.Join(ex, name))
		}
	}

	var rec map[string]any
	b, err = os.ReadFile(filepath.Join(dir, ExamplesDir, "ex_1", "metrics.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "mix/1.wav", rec["mix_path"])
	assert.Equal(t, 2.0, rec["si_sdr"])
}

func TestRunNoExamples(t *testing.T) {
	p, dir := newTestPipeline(t, 0, &identityGen{}, identityAligner{}, &countingEngine{})
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, ExamplesDir))
}

func TestRunSampledExamples(t *testing.T) {
	p, dir := newTestPipeline(t, 2, &identityGen{}, identityAligner{}, &countingEngine{})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, ExamplesDir))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRunTooManyExamples(t *testing.T) {
	p, _ := newTestPipeline(t, 4, &identityGen{}, identityAligner{}, &countingEngine{})
	_, err := p.Run(context.Background())
	assert.Error(t, err)
}

func TestRunFailsLoudly(t *testing.T) {
	assertNoReport := func(t *testing.T, dir string) {
		assert.NoFileExists(t, filepath.Join(dir, AllMetricsFile))
		assert.NoFileExists(t, filepath.Join(dir, FinalMetricsFile))
	}

	t.Run("metrics engine error", func(t *testing.T) {
		p, dir := newTestPipeline(t, 0, &identityGen{}, identityAligner{}, &countingEngine{fail: 2})
		_, err := p.Run(context.Background())
		assert.ErrorContains(t, err, "item 1")
		assert.ErrorContains(t, err, "engine exploded")
		assertNoReport(t, dir)
	})

	t.Run("missing baseline", func(t *testing.T) {
		eng := &countingEngine{result: func(int) map[string]float64 {
			return map[string]float64{"si_sdr": 1, "input_si_sdr": 0, "stoi": 1}
		}}
		p, dir := newTestPipeline(t, 0, &identityGen{}, identityAligner{}, eng)
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, ErrMissingBaseline)
		assertNoReport(t, dir)
	})

	t.Run("aligned estimate length", func(t *testing.T) {
		eng := &countingEngine{}
		p, dir := newTestPipeline(t, 0, &identityGen{}, shortAligner{}, eng)
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, ErrLength)
		assert.Zero(t, eng.calls, "engine must not score a truncated estimate")
		assertNoReport(t, dir)
	})

	t.Run("source count", func(t *testing.T) {
		p, dir := newTestPipeline(t, 0, &identityGen{}, dupAligner{}, &countingEngine{})
		_, err := p.Run(context.Background())
		assert.ErrorIs(t, err, ErrSourceCount)
		assertNoReport(t, dir)
	})

	t.Run("generator output length", func(t *testing.T) {
		p, dir := newTestPipeline(t, 0, truncGen{}, identityAligner{}, &countingEngine{})
		_, err := p.Run(context.Background())
		assert.ErrorContains(t, err, "forward slice 0")
		assertNoReport(t, dir)
	})
}

type shortAligner struct{}

func (shortAligner) Align(_ context.Context, est, _ [][]float32) (float64, [][]float32, error) {
	return 0, [][]float32{est[0][:1]}, nil
}

type dupAligner struct{}

func (dupAligner) Align(_ context.Context, est, _ [][]float32) (float64, [][]float32, error) {
	return 0, append(est, est[0]), nil
}

type truncGen struct{}

func (truncGen) Forward(_ context.Context, s []float32) ([]float32, error) { return s[:1], nil }

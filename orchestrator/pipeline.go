package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/segan-eval/dsp"
	"github.com/maastricht-university/segan-eval/telemetry"
)

var (
	ErrSourceCount = errors.New("orchestrator: estimated and reference source counts differ")
	ErrLength      = errors.New("orchestrator: aligned estimate length differs from utterance length")
)

// Options configures an evaluation run.
type Options struct {
	ExpDir     string
	SampleRate int
	Window     int
	EmphCoeff  float64
	Metrics    []string
	NSaveEx    int
	Rand       *rand.Rand
	Progress   io.Writer
	Log        logrus.FieldLogger
}

type Pipeline struct {
	opts   Options
	data   Dataset
	gen    Generator
	align  Aligner
	engine MetricsEngine
	log    logrus.FieldLogger
}

func NewPipeline(opts Options, data Dataset, gen Generator, align Aligner, engine MetricsEngine) *Pipeline {
	if opts.Window <= 0 {
		opts.Window = dsp.DefaultWindow
	}
	if opts.EmphCoeff == 0 {
		opts.EmphCoeff = dsp.DefaultEmphCoeff
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{opts: opts, data: data, gen: gen, align: align, engine: engine, log: log}
}

// Run evaluates every item of the test set in order, exports the selected
// examples and persists the per-utterance table and the summary. Any error
// aborts the run before the table and summary are written.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	n := p.data.Len()
	save, err := selectExamples(p.opts.Rand, n, p.opts.NSaveEx)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"items": n, "examples": len(save)}).Info("starting evaluation")

	acc := NewAccumulator(p.opts.Metrics)
	bar := newProgress(p.opts.Progress, n)
	for idx := 0; idx < n; idx++ {
		start := time.Now()
		if err := p.step(ctx, idx, save[idx], acc); err != nil {
			telemetry.RecordItem(false)
			bar.finish(false)
			return nil, fmt.Errorf("item %d: %w", idx, err)
		}
		telemetry.RecordItem(true)
		bar.step(start)
	}
	bar.finish(true)

	summary, err := acc.Summary()
	if err != nil {
		return nil, err
	}
	csvPath, jsonPath, err := persist(p.opts.ExpDir, acc, summary)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"all_metrics": csvPath, "final_metrics": jsonPath}).Info("evaluation complete")
	return summary, nil
}

func (p *Pipeline) step(ctx context.Context, idx int, export bool, acc *Accumulator) error {
	u, restored, err := p.process(ctx, idx)
	if err != nil {
		return err
	}
	if err := acc.Add(u); err != nil {
		return err
	}
	if !export {
		return nil
	}
	start := time.Now()
	dir, err := exportExample(p.opts.ExpDir, idx, p.opts.SampleRate, restored, u)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	telemetry.ObserveStage(telemetry.StageExport, start)
	telemetry.ExamplesTotal.Inc()
	p.log.WithField("dir", dir).Debug("example saved")
	return nil
}

// process runs one test item through the generator, reconstructs and aligns
// the estimate, restores every signal and scores it.
func (p *Pipeline) process(ctx context.Context, idx int) (Utterance, Restored, error) {
	start := time.Now()
	item, err := p.data.Item(idx)
	if err != nil {
		return Utterance{}, Restored{}, err
	}
	telemetry.ObserveStage(telemetry.StageDecode, start)

	start = time.Now()
	w := p.opts.Window
	est := make([][]float32, len(item.Mixture))
	for i, s := range item.Mixture {
		out, err := p.gen.Forward(ctx, s)
		if err != nil {
			return Utterance{}, Restored{}, fmt.Errorf("forward slice %d: %w", i, err)
		}
		if len(out) != w {
			return Utterance{}, Restored{}, fmt.Errorf("forward slice %d: got %d samples, want %d", i, len(out), w)
		}
		est[i] = out
	}
	telemetry.SlicesTotal.Add(float64(len(est)))
	telemetry.ObserveStage(telemetry.StageForward, start)

	length := item.Length()
	estSig, err := dsp.Deslice(est, w, length)
	if err != nil {
		return Utterance{}, Restored{}, err
	}
	mix, err := dsp.Deslice(item.Mixture, w, length)
	if err != nil {
		return Utterance{}, Restored{}, err
	}

	start = time.Now()
	loss, reordered, err := p.align.Align(ctx, [][]float32{estSig}, item.Sources)
	if err != nil {
		return Utterance{}, Restored{}, fmt.Errorf("align: %w", err)
	}
	if len(reordered) != len(item.Sources) {
		return Utterance{}, Restored{}, fmt.Errorf("%w: %d estimates, %d references", ErrSourceCount, len(reordered), len(item.Sources))
	}
	for k, s := range reordered {
		if len(s) != length {
			return Utterance{}, Restored{}, fmt.Errorf("%w: estimate %d has %d samples, want %d", ErrLength, k, len(s), length)
		}
	}
	telemetry.ObserveStage(telemetry.StageAlign, start)

	c := p.opts.EmphCoeff
	restored := Restored{
		Mixture:   dsp.DeEmphasis(mix, c),
		Sources:   dsp.DeEmphasisBatch(item.Sources, c),
		Estimates: dsp.DeEmphasisBatch(reordered, c),
	}

	start = time.Now()
	m, err := p.engine.Compute(ctx, restored.Mixture, restored.Sources, restored.Estimates, p.opts.SampleRate, p.opts.Metrics)
	if err != nil {
		return Utterance{}, Restored{}, fmt.Errorf("metrics: %w", err)
	}
	telemetry.ObserveStage(telemetry.StageMetrics, start)

	p.log.WithFields(logrus.Fields{"idx": idx, "mix": item.MixturePath, "pit_loss": loss}).Debug("item evaluated")
	return Utterance{Index: idx, MixPath: item.MixturePath, Metrics: m}, restored, nil
}

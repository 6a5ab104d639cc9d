package main

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/maastricht-university/segan-eval/checkpoint"
	"github.com/maastricht-university/segan-eval/clients"
	cfg "github.com/maastricht-university/segan-eval/config"
	"github.com/maastricht-university/segan-eval/dataset"
	"github.com/maastricht-university/segan-eval/orchestrator"
	"github.com/maastricht-university/segan-eval/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	v := cfg.New()
	var confPath string

	cmd := &cobra.Command{
		Use:           "segan-eval",
		Short:         "Evaluate a trained SEGAN generator on a test set",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := cfg.Load(v, confPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), conf, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("test_dir", v.GetString("test_dir"), "Test directory including the csv files")
	f.Int("use_gpu", v.GetInt("use_gpu"), "Whether to use the GPU for model execution")
	f.String("exp_dir", v.GetString("exp_dir"), "Experiment root")
	f.Int("n_save_ex", v.GetInt("n_save_ex"), "Number of audio examples to save, -1 means all")
	f.Int64("seed", v.GetInt64("seed"), "Seed for example selection, -1 picks one from the clock")
	f.String("log_level", v.GetString("log_level"), "Log level (debug, info, warn, error)")
	f.String("log_file", "", "Also write logs to this file, rotated")
	f.String("metrics_textfile", "", "Write Prometheus run metrics to this file")
	f.StringVar(&confPath, "config", "", "Optional YAML file with service and evaluation settings")
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	return cmd
}

func setupLogging(conf *cfg.Root, stderr io.Writer) error {
	lvl, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	out := stderr
	if conf.LogFile != "" {
		out = io.MultiWriter(stderr, &lumberjack.Logger{
			Filename:   conf.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
		})
	}
	logrus.SetOutput(out)
	return nil
}

func run(ctx context.Context, conf *cfg.Root, stdout, stderr io.Writer) error {
	if err := setupLogging(conf, stderr); err != nil {
		return err
	}
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)

	train, err := cfg.LoadTrain(conf.ExpDir)
	if err != nil {
		return err
	}
	best, err := checkpoint.BestPath(conf.ExpDir)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"checkpoint": best, "device": conf.Device()}).Info("loading generator")

	h := clients.NewHTTP(cfg.DurSeconds(conf.Services.TimeoutSeconds), runID)
	start := time.Now()
	model, err := h.LoadGenerator(ctx, conf.Services.Generator.URL, train.Raw, best, conf.Device())
	if err != nil {
		return err
	}
	telemetry.ObserveStage(telemetry.StageModel, start)

	testSet, err := dataset.Open(conf.TestDir, dataset.Options{
		Task:       train.Data.Task,
		SampleRate: train.Data.SampleRate,
		NSrc:       train.Data.NSrc,
		Window:     conf.Eval.Window,
		EmphCoeff:  conf.Eval.EmphCoeff,
	})
	if err != nil {
		return err
	}

	seed := conf.Seed
	if seed == -1 {
		seed = time.Now().UnixNano()
	}
	log.WithFields(logrus.Fields{"items": testSet.Len(), "seed": seed, "model_id": model.ID}).Info("test set loaded")

	p := orchestrator.NewPipeline(orchestrator.Options{
		ExpDir:     conf.ExpDir,
		SampleRate: train.Data.SampleRate,
		Window:     conf.Eval.Window,
		EmphCoeff:  conf.Eval.EmphCoeff,
		Metrics:    conf.Eval.Metrics,
		NSaveEx:    conf.NSaveEx,
		Rand:       rand.New(rand.NewSource(seed)),
		Progress:   stderr,
		Log:        log,
	}, testSet, model, h.Aligner(conf.Services.Alignment.URL), h.MetricsEngine(conf.Services.Metrics.URL))

	summary, err := p.Run(ctx)
	if conf.MetricsTextfile != "" {
		if werr := telemetry.WriteTextfile(conf.MetricsTextfile); werr != nil {
			log.WithError(werr).Warn("writing metrics textfile")
		}
	}
	if err != nil {
		return err
	}
	orchestrator.PrintSummary(stdout, summary)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shlpu/TSAT/explorer"
	"github.com/shlpu/TSAT/lib/anomaly"
	"github.com/shlpu/TSAT/lib/dataset"
	"github.com/shlpu/TSAT/lib/grammar"
	"github.com/shlpu/TSAT/lib/patterns"
	"github.com/shlpu/TSAT/lib/progress"
	"github.com/shlpu/TSAT/lib/reporter"
	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/sax"
	"github.com/shlpu/TSAT/lib/settings"
	"github.com/shlpu/TSAT/lib/store"
)

const (
	MODE_TRAIN      = "train"
	MODE_TRAIN_TEST = "train+test"
	MODE_TEST       = "test"
	MODE_ANOMALY    = "anomaly"
	MODE_EXPLORE    = "explore"
)

type config struct {
	mode             string
	settingsFile     string
	trainFile        string
	testFile         string
	skipHeader       bool
	modelID          string
	resultsDirectory string
	reporterKind     string
	metricsAddress   string
	explorerAddress  string

	seriesFile       string
	column           int
	window           int
	paa              int
	alphabet         int
	discords         int
	anomalyAlgorithm string
}

func newReporter(cfg *config) (reporter.Reporter, error) {
	switch cfg.reporterKind {
	case "":
		return nil, nil
	case "csv":
		return reporter.NewCsvReporter(cfg.resultsDirectory), nil
	case "parquet":
		return reporter.NewParquetReporter(cfg.resultsDirectory, 0), nil
	case "log":
		return reporter.NewSetReporter(), nil
	}
	return nil, fmt.Errorf("unknown reporter %q", cfg.reporterKind)
}

func newSink(s settings.RPMSettings) progress.Sink {
	sinks := progress.Multi{progress.LogSink{}}
	if s.KafkaURL != "" {
		sinks = append(sinks, progress.NewKafkaSink(s))
	}
	return sinks
}

// tool holds what one invocation works with.
type tool struct {
	cfg      *config
	settings settings.RPMSettings
	trainer  *rpm.Trainer
	store    *store.ModelStore
	reporter reporter.Reporter
}

func (t *tool) train(ctx context.Context) (*rpm.TrainedModel, error) {
	data, err := dataset.LoadUCR(t.cfg.trainFile, t.cfg.skipHeader)
	if err != nil {
		return nil, err
	}
	m, err := t.trainer.Train(ctx, data)
	if err != nil {
		return nil, err
	}
	log.Printf("%s\n", m)
	if err := t.store.Save(m); err != nil {
		return m, err
	}
	if t.reporter != nil {
		t.reporter.Initialize(t.settings, m.ID, m.Labels)
		if err := t.reporter.AddPatterns(m.Classes); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (t *tool) test(ctx context.Context, m *rpm.TrainedModel) error {
	data, err := dataset.LoadUCR(t.cfg.testFile, t.cfg.skipHeader)
	if err != nil {
		return err
	}
	res, err := t.trainer.Test(ctx, m, data)
	if err != nil {
		return err
	}
	if err := t.store.SaveResult(res); err != nil {
		return err
	}
	if t.reporter != nil {
		t.reporter.Initialize(t.settings, m.ID, m.Labels)
		if err := t.reporter.AddPredictions(res); err != nil {
			return err
		}
	}
	log.Printf("model %s: test error %f\n%s\n", m.ID, res.Error, res.Evaluation)
	return nil
}

func (t *tool) storedModel() (*rpm.TrainedModel, error) {
	if t.cfg.modelID == "" {
		return t.store.Latest()
	}
	return t.store.Load(t.cfg.modelID)
}

func (t *tool) findAnomalies(ctx context.Context) error {
	series, err := dataset.LoadSeries(t.cfg.seriesFile, t.cfg.column)
	if err != nil {
		return err
	}
	algorithm, err := grammar.ParseAlgorithm(t.settings.Algorithm)
	if err != nil {
		return err
	}
	strategy, err := sax.ParseStrategy(t.settings.Strategy)
	if err != nil {
		return err
	}
	detector := &anomaly.Detector{
		Algorithm:     algorithm,
		NormThreshold: t.settings.NormalizationThreshold,
		Discords:      t.cfg.discords,
	}
	var report *anomaly.Report
	switch t.cfg.anomalyAlgorithm {
	case "rra":
		p := patterns.Params{Window: t.cfg.window, PAA: t.cfg.paa, Alphabet: t.cfg.alphabet, Strategy: strategy}
		report, err = detector.FindRRA(ctx, series, p)
	case "bruteforce":
		var discords []anomaly.Discord
		discords, err = detector.FindBruteForce(ctx, series, t.cfg.window)
		report = &anomaly.Report{Discords: discords}
	default:
		return fmt.Errorf("unknown anomaly algorithm %q", t.cfg.anomalyAlgorithm)
	}
	if err != nil {
		return err
	}
	log.Printf("%d discords found in %s\n", len(report.Discords), t.cfg.seriesFile)
	if t.reporter != nil {
		t.reporter.Initialize(t.settings, fmt.Sprintf("anomaly_%d", time.Now().UTC().Unix()), nil)
		return t.reporter.AddDiscords(report)
	}
	return nil
}

func (t *tool) explore(ctx context.Context) error {
	expl := explorer.NewModelExplorer(t.store)
	expl.Initialize(time.Hour)
	defer expl.Shutdown()

	explorerRouter := mux.NewRouter().StrictSlash(true)
	expl.Routes(explorerRouter)
	explorerServer := &http.Server{
		Addr:    t.cfg.explorerAddress,
		Handler: explorerRouter,
	}
	go func() {
		log.Printf("explorer service listening on port %s\n", t.cfg.explorerAddress)
		if err := explorerServer.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatal(err)
			}
		}
	}()

	<-ctx.Done()
	log.Println("explorer service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return explorerServer.Shutdown(shutdownCtx)
}

func (t *tool) run(ctx context.Context) error {
	switch t.cfg.mode {
	case MODE_TRAIN:
		_, err := t.train(ctx)
		return err
	case MODE_TRAIN_TEST:
		m, err := t.train(ctx)
		if err != nil {
			return err
		}
		return t.test(ctx, m)
	case MODE_TEST:
		m, err := t.storedModel()
		if err != nil {
			return err
		}
		return t.test(ctx, m)
	case MODE_ANOMALY:
		return t.findAnomalies(ctx)
	case MODE_EXPLORE:
		return t.explore(ctx)
	}
	return fmt.Errorf("unknown mode %q", t.cfg.mode)
}

func main() {
	cfg := &config{}

	flag.StringVar(&cfg.mode, "mode", MODE_TRAIN_TEST, "One of train, train+test, test, anomaly, explore")
	flag.StringVar(&cfg.settingsFile, "settings", "", "A TOML settings file. TSAT_* variables and flags override it.")
	flag.StringVar(&cfg.trainFile, "train", "", "Training data in UCR format")
	flag.StringVar(&cfg.testFile, "test", "", "Test data in UCR format")
	flag.BoolVar(&cfg.skipHeader, "skipHeader", false, "Whether the first line of the data files is a header")
	flag.StringVar(&cfg.modelID, "model", "", "The stored model to test. Empty means the latest one.")
	flag.StringVar(&cfg.resultsDirectory, "resultsDirectory", "/tmp/tsatResults", "The directory for result files.")
	flag.StringVar(&cfg.reporterKind, "reporter", "", "Where to write patterns, predictions and discords: csv, parquet or log")
	flag.StringVar(&cfg.metricsAddress, "metricsAddress", "", "The address the metrics endpoint binds to. Empty disables it.")
	flag.StringVar(&cfg.explorerAddress, "explorerAddress", ":9205", "The address that the explorer endpoint binds to.")

	flag.StringVar(&cfg.seriesFile, "series", "", "The series to search for anomalies, one value per line")
	flag.IntVar(&cfg.column, "column", 0, "The column of the series file to read")
	flag.IntVar(&cfg.window, "window", 100, "Sliding window size for anomaly discovery")
	flag.IntVar(&cfg.paa, "paa", 5, "PAA size for anomaly discovery")
	flag.IntVar(&cfg.alphabet, "alphabet", 4, "Alphabet size for anomaly discovery")
	flag.IntVar(&cfg.discords, "discords", 5, "Number of discords to report")
	flag.StringVar(&cfg.anomalyAlgorithm, "anomalyAlgorithm", "rra", "rra or bruteforce")

	flagSettings, overrides := settingsFlags(flag.CommandLine)
	flag.Parse()

	s, err := loadSettings(flag.CommandLine, cfg.settingsFile, flagSettings, overrides)
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	if err := run(cfg, s); err != nil {
		log.Fatalf("%s failed: %v", cfg.mode, err)
	}
}

func run(cfg *config, s settings.RPMSettings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.metricsAddress != "" {
		metricsRouter := mux.NewRouter().StrictSlash(true)
		metricsRouter.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics endpoint listening on %s\n", cfg.metricsAddress)
			if err := http.ListenAndServe(cfg.metricsAddress, metricsRouter); err != nil {
				log.Printf("metrics endpoint failed: %v\n", err)
			}
		}()
	}

	rep, err := newReporter(cfg)
	if err != nil {
		return err
	}
	if rep != nil {
		if err := os.MkdirAll(cfg.resultsDirectory, 0750); err != nil {
			return err
		}
	}
	t := &tool{cfg: cfg, settings: s, reporter: rep}
	if cfg.mode != MODE_ANOMALY {
		if t.store, err = store.Open(s.StorePath); err != nil {
			return err
		}
		defer t.store.Close()
		sink := newSink(s)
		defer sink.Close()
		t.trainer = rpm.NewTrainer(s, sink)
	}

	err = t.run(ctx)
	if rep != nil {
		err = errors.Join(err, rep.Flush())
	}
	return err
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aquitania/internal/brains"
	"aquitania/internal/cfg"
	"aquitania/internal/liquidation"
	"aquitania/internal/metrics"
	"aquitania/internal/ml"
	"aquitania/internal/oracle"
	"aquitania/internal/report"
	"aquitania/internal/split"
	"aquitania/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// overrides holds the command line values that take precedence over the
// loaded config. Zero values leave the config untouched.
type overrides struct {
	strategy    string
	signal      string
	currencies  string
	modelKind   string
	maxDepth    int
	reportDir   string
	schedule    string
	logLevel    string
	metricsFile string
}

func main() {
	var o overrides
	flag.StringVar(&o.strategy, "strategy", "", "Strategy name (overrides config)")
	flag.StringVar(&o.signal, "signal", "", "Entry signal (overrides config)")
	flag.StringVar(&o.currencies, "currencies", "", "Comma-separated currencies (overrides config)")
	flag.StringVar(&o.modelKind, "model", "", "Model kind: decision_tree, logistic_regression")
	flag.IntVar(&o.maxDepth, "max-depth", 0, "Decision tree depth limit")
	flag.StringVar(&o.reportDir, "report", "", "Report directory, \"-\" disables reports")
	flag.StringVar(&o.schedule, "schedule", "", "Cron expression for repeated runs")
	flag.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	flag.Parse()

	if err := run(o); err != nil {
		log.Error().Err(err).Msg("Strategy trainer failed")
		os.Exit(1)
	}
}

// run loads the config, trains once or on a schedule, and releases the store
// and log file before returning.
func run(o overrides) error {
	config, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyOverrides(&config, o); err != nil {
		return err
	}

	closer := setupLogging(config)
	defer closer.Close()

	log.Info().
		Str("strategy", config.Strategy).
		Str("signal", config.Signal).
		Strs("currencies", config.Currencies).
		Str("model", config.ModelKind).
		Str("data", config.DataPath).
		Str("models", config.ModelDir).
		Msg("Starting strategy trainer")

	store, err := storage.New(config.DataPath)
	if err != nil {
		return fmt.Errorf("failed to open feature store: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	mw := metrics.NewWrapper(metrics.NewWithRegistry(registry))

	manager, err := brains.New(brains.Options{
		FeatureSource: store,
		LabelSource:   liquidation.NewDir(config.LiquidationDir),
		Currencies:    config.Currencies,
		Strategy:      brains.LookupStrategy(config.Strategy, config.Signal),
		Split:         splitConfig(config),
		ModelDir:      config.ModelDir,
		Ratios:        config.BetRatios,
		Threshold:     config.ProbThreshold,
		Metrics:       mw,
		Runs:          store,
	})
	if err != nil {
		return fmt.Errorf("failed to create brains manager: %w", err)
	}

	if config.Schedule == "" {
		err := runOnce(manager, store, config)
		writeMetrics(config, registry)
		if err != nil {
			return fmt.Errorf("training run failed: %w", err)
		}
		return nil
	}

	job := func() {
		if err := runOnce(manager, store, config); err != nil {
			log.Error().Err(err).Str("strategy", manager.StrategyName()).Msg("Training run failed")
		}
		writeMetrics(config, registry)
	}

	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(config.Schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.Start()
	log.Info().Str("schedule", config.Schedule).Msg("Scheduled training started")

	<-ctx.Done()
	log.Info().Msg("Shutting down, waiting for the running job")
	<-c.Stop().Done()
	return nil
}

// applyOverrides copies the set command line values into config and checks
// the result again.
func applyOverrides(config *cfg.Settings, o overrides) error {
	if o.strategy != "" {
		config.Strategy = o.strategy
	}
	if o.signal != "" {
		config.Signal = o.signal
	}
	if o.currencies != "" {
		config.Currencies = parseList(o.currencies)
	}
	if o.modelKind != "" {
		config.ModelKind = o.modelKind
	}
	if o.maxDepth > 0 {
		config.MaxDepth = o.maxDepth
	}
	if o.reportDir != "" {
		config.ReportDir = o.reportDir
	}
	if o.schedule != "" {
		config.Schedule = o.schedule
	}
	if o.logLevel != "" {
		config.LogLevel = o.logLevel
	}
	if o.metricsFile != "" {
		config.MetricsFile = o.metricsFile
	}
	if err := cfg.Validate(config); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// cronLogger routes scheduler messages to the global zerolog logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// runOnce trains the strategy and writes its reports.
func runOnce(manager *brains.Manager, store *storage.Store, config cfg.Settings) error {
	o, err := manager.RunModel(modelSpec(config))
	if err != nil {
		return err
	}

	if config.ReportDir == "" || config.ReportDir == "-" {
		return nil
	}
	return writeReports(o, store, config)
}

func writeReports(o *oracle.Oracle, store *storage.Store, config cfg.Settings) error {
	history, err := store.ListTrainingRuns(o.Strategy)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load run history")
	}

	reporter, err := report.NewReporter(o, history, config.ReportDir, config.ReportFormats)
	if err != nil {
		return err
	}
	if _, err := reporter.GenerateReport(); err != nil {
		return fmt.Errorf("failed to generate reports: %w", err)
	}
	log.Info().Str("output", reporter.OutputPath()).Msg("Reports written")
	return nil
}

func writeMetrics(config cfg.Settings, registry *prometheus.Registry) {
	if config.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(config.MetricsFile, registry); err != nil {
		log.Warn().Err(err).Str("file", config.MetricsFile).Msg("Failed to write metrics")
	}
}

func splitConfig(config cfg.Settings) split.Config {
	return split.Config{
		TestFraction: config.TestFraction,
		Shuffle:      config.SplitShuffle,
		Seed:         config.SplitSeed,
	}
}

func modelSpec(config cfg.Settings) ml.ModelSpec {
	return ml.ModelSpec{
		Kind:         config.ModelKind,
		MaxDepth:     config.MaxDepth,
		MinLeafSize:  config.MinLeafSize,
		LearningRate: config.LearningRate,
		Epochs:       config.Epochs,
		L2:           config.L2,
	}
}

// setupLogging configures the global logger. Console output goes to stderr;
// with a log file set, output is also written there with size-based rotation.
func setupLogging(config cfg.Settings) io.Closer {
	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if config.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	var file *lumberjack.Logger
	if config.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:   config.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if file == nil {
		return io.NopCloser(nil)
	}
	return file
}

// parseList parses a comma-separated list
func parseList(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}

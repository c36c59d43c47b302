// Package brains sequences one training run of a strategy: load the indicator
// rows and trade outcomes, transform them into a dataset, fit and evaluate a
// model on a train/test split, and persist the resulting oracle.
//
// A Manager is not safe for concurrent use. Two processes training the same
// strategy race on its artifact path; the atomic rename in oracle.Save keeps
// the file readable either way.
package brains

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"
	"aquitania/internal/ml"
	"aquitania/internal/oracle"
	"aquitania/internal/split"
	"aquitania/internal/storage"
	"aquitania/internal/transform"

	"github.com/rs/zerolog/log"
)

// FeatureSource loads the raw indicator rows of a signal.
type FeatureSource interface {
	LoadFeatures(currencies []string, signal string) (dataset.FeatureTable, error)
}

// LabelSource loads one currency's trade outcomes for a signal.
type LabelSource interface {
	Load(currency, signal string) (dataset.LabelTable, error)
}

// RunRecorder keeps a log of training runs.
type RunRecorder interface {
	RecordTrainingRun(run storage.TrainingRun) error
}

// MetricsInterface defines metrics methods needed by the manager
type MetricsInterface interface {
	RunStarted(strategy string)
	RunFailed(strategy string)
	RunDuration(d time.Duration)
	LabelFileLoaded()
	DatasetRows(strategy string, raw, transformed int)
	SplitRows(strategy string, train, test int)
	ModelEvaluated(strategy string, accuracy, precision, recall, auc float64)
	ArtifactWritten(strategy string, bytes int)
}

// Options configure a Manager. FeatureSource, LabelSource, Currencies,
// Strategy and ModelDir are required.
type Options struct {
	FeatureSource FeatureSource
	LabelSource   LabelSource
	Currencies    []string
	Strategy      Strategy
	Split         split.Config
	ModelDir      string
	Ratios        []float64
	Threshold     float64
	Metrics       MetricsInterface
	Runs          RunRecorder
}

// Manager runs training for one strategy.
type Manager struct {
	features    FeatureSource
	labels      LabelSource
	currencies  []string
	strategy    Strategy
	name        string
	split       split.Config
	modelDir    string
	ratios      []float64
	threshold   float64
	metrics     MetricsInterface
	runs        RunRecorder
	transformer *transform.IndicatorTransformer
}

func New(opts Options) (*Manager, error) {
	if opts.FeatureSource == nil || opts.LabelSource == nil {
		return nil, fmt.Errorf("feature and label sources are required")
	}
	if len(opts.Currencies) == 0 {
		return nil, errors.New(common.ErrMsgCurrencyRequired)
	}
	seen := make(map[string]struct{}, len(opts.Currencies))
	for _, c := range opts.Currencies {
		if strings.TrimSpace(c) == "" || strings.ContainsAny(c, `/\`) {
			return nil, fmt.Errorf("invalid currency name %q", c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("currency %s is listed more than once", c)
		}
		seen[c] = struct{}{}
	}
	if opts.Strategy == nil {
		return nil, errors.New(common.ErrMsgStrategyRequired)
	}
	name := StrategyName(opts.Strategy)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid strategy name %q", name)
	}
	if opts.Strategy.Signal().Entry == "" {
		return nil, errors.New(common.ErrMsgSignalRequired)
	}
	if opts.ModelDir == "" {
		return nil, fmt.Errorf("model directory is required")
	}
	if opts.Threshold == 0 {
		opts.Threshold = common.DefaultProbThreshold
	}
	if len(opts.Ratios) == 0 {
		opts.Ratios = append([]float64(nil), common.DefaultBetRatios...)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}

	return &Manager{
		features:    opts.FeatureSource,
		labels:      opts.LabelSource,
		currencies:  append([]string(nil), opts.Currencies...),
		strategy:    opts.Strategy,
		name:        name,
		split:       opts.Split,
		modelDir:    opts.ModelDir,
		ratios:      opts.Ratios,
		threshold:   opts.Threshold,
		metrics:     opts.Metrics,
		runs:        opts.Runs,
		transformer: transform.NewIndicatorTransformer(opts.Strategy.Signal()),
	}, nil
}

// StrategyName returns the name the artifact is stored under.
func (m *Manager) StrategyName() string { return m.name }

// ArtifactPath returns {ModelDir}/{StrategyName}.json.
func (m *Manager) ArtifactPath() string {
	return filepath.Join(m.modelDir, m.name+common.ArtifactExt)
}

// RunModel prepares the data, fits a model built from spec on a fresh
// train/test split, and saves the oracle. Any failure is returned before the
// artifact is touched, so a failed run never leaves a partial file.
func (m *Manager) RunModel(spec ml.ModelSpec) (o *oracle.Oracle, err error) {
	start := time.Now()
	run := storage.TrainingRun{
		Strategy:  m.name,
		Signal:    m.strategy.Signal().Entry,
		ModelKind: spec.Kind,
		StartedAt: start.UTC(),
	}
	m.metrics.RunStarted(m.name)
	defer func() { m.finishRun(&run, start, o, err) }()

	ds, raw, err := m.prepareData()
	if err != nil {
		return nil, err
	}
	run.RawRows = raw
	run.DatasetRows = ds.Len()

	splitter, err := split.NewTrainTestSplit(m.split)
	if err != nil {
		return nil, err
	}
	model, err := ml.NewModel(spec)
	if err != nil {
		return nil, err
	}
	run.ModelKind = model.Kind()

	mm, err := ml.NewModelManager(model, splitter, ml.ManagerConfig{
		Ratios:    m.ratios,
		Threshold: m.threshold,
		Seed:      m.split.Seed,
	})
	if err != nil {
		return nil, err
	}

	results, err := mm.FitPredictEvaluate(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", m.name, err)
	}
	run.TrainRows = results.Metrics.TrainingSamples
	run.TestRows = results.Metrics.TestSamples
	run.Accuracy = results.Metrics.Accuracy
	run.Precision = results.Metrics.Precision
	run.Recall = results.Metrics.Recall
	run.AUC = results.Metrics.AUCScore
	m.metrics.SplitRows(m.name, run.TrainRows, run.TestRows)
	m.metrics.ModelEvaluated(m.name, run.Accuracy, run.Precision, run.Recall, run.AUC)

	return m.SaveStrategyToDisk(mm, ds.FeatureNames, results)
}

func (m *Manager) finishRun(run *storage.TrainingRun, start time.Time, o *oracle.Oracle, err error) {
	run.Duration = time.Since(start)
	m.metrics.RunDuration(run.Duration)

	if err != nil {
		run.Error = err.Error()
		m.metrics.RunFailed(m.name)
		log.Error().Err(err).Str("strategy", m.name).Dur("elapsed", run.Duration).Msg("Training run failed")
	} else {
		run.ArtifactID = o.ID
		run.ArtifactPath = m.ArtifactPath()
		log.Info().
			Str("strategy", m.name).
			Str("artifact", run.ArtifactPath).
			Str("id", o.ID).
			Dur("elapsed", run.Duration).
			Msg("Training run completed")
	}

	if m.runs != nil {
		if rerr := m.runs.RecordTrainingRun(*run); rerr != nil {
			log.Warn().Err(rerr).Str("strategy", m.name).Msg("Failed to record training run")
		}
	}
}

// PrepareData loads the raw features and the concatenated labels, logs the
// raw shape, and transforms them. Every currency needs a label file.
func (m *Manager) PrepareData() (dataset.Dataset, error) {
	ds, _, err := m.prepareData()
	return ds, err
}

func (m *Manager) prepareData() (dataset.Dataset, int, error) {
	signal := m.strategy.Signal()

	features, err := m.features.LoadFeatures(m.currencies, signal.Entry)
	if err != nil {
		return dataset.Dataset{}, 0, fmt.Errorf("failed to load features for %s: %w", signal, err)
	}

	labels, err := m.GenerateResultsSet(signal.Entry)
	if err != nil {
		return dataset.Dataset{}, 0, err
	}

	rows, cols := features.Shape()
	log.Info().
		Strs("currencies", m.currencies).
		Str("signal", signal.Entry).
		Int("rows", rows).
		Int("columns", cols).
		Int("labels", labels.Len()).
		Msg("Raw data loaded")

	// a fresh transformer per run keeps earlier oracles' scaling intact
	tr := transform.NewIndicatorTransformer(signal)
	ds, err := tr.Transform(features, labels)
	if err != nil {
		return dataset.Dataset{}, 0, fmt.Errorf("failed to transform %s: %w", signal, err)
	}
	m.transformer = tr
	m.metrics.DatasetRows(m.name, rows, ds.Len())

	return ds, rows, nil
}

// GenerateResultsSet loads every currency's label table for signal and
// concatenates them in currency order. Rows are neither deduplicated nor
// checked against each other.
func (m *Manager) GenerateResultsSet(signal string) (dataset.LabelTable, error) {
	tables := make([]dataset.LabelTable, 0, len(m.currencies))
	for _, currency := range m.currencies {
		t, err := m.labels.Load(currency, signal)
		if err != nil {
			return dataset.LabelTable{}, fmt.Errorf("failed to load labels for %s: %w", currency, err)
		}
		m.metrics.LabelFileLoaded()
		tables = append(tables, t)
	}
	return dataset.Concat(tables...), nil
}

// SaveStrategyToDisk builds the oracle and writes it to ArtifactPath,
// replacing any previous artifact of the strategy.
func (m *Manager) SaveStrategyToDisk(mm *ml.ModelManager, features []string, results ml.Results) (*oracle.Oracle, error) {
	o, err := oracle.New(oracle.Params{
		Strategy:    m.name,
		Signal:      m.strategy.Signal(),
		Manager:     mm,
		Features:    features,
		Transformer: m.transformer,
		Results:     results,
		Threshold:   m.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build oracle: %w", err)
	}

	path := m.ArtifactPath()
	n, err := oracle.Save(path, o)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", path, err)
	}
	m.metrics.ArtifactWritten(m.name, n)

	log.Info().
		Str("strategy", m.name).
		Str("path", path).
		Int("bytes", n).
		Msg("Strategy saved")

	return o, nil
}

type noopMetrics struct{}

func (noopMetrics) RunStarted(string) {}
func (noopMetrics) RunFailed(string) {}
func (noopMetrics) RunDuration(time.Duration) {}
func (noopMetrics) LabelFileLoaded() {}
func (noopMetrics) DatasetRows(string, int, int) {}
func (noopMetrics) SplitRows(string, int, int) {}
func (noopMetrics) ModelEvaluated(string, float64, float64, float64, float64) {}
func (noopMetrics) ArtifactWritten(string, int) {}

package ml

import (
	"fmt"
	"time"

	"aquitania/internal/common"
	"aquitania/internal/dataset"

	"github.com/rs/zerolog/log"
)

// Splitter partitions a dataset into in-sample and out-of-sample parts.
type Splitter interface {
	Split(ds dataset.Dataset) (train, test dataset.Dataset, err error)
}

// ManagerConfig controls evaluation and bet sizing.
type ManagerConfig struct {
	Ratios            []float64
	Threshold         float64
	Seed              int64
	ImportanceRepeats int
}

// Results is what one fit/evaluate pass produces.
type Results struct {
	Metrics          ModelMetrics        `json:"metrics"`
	BetSizing        BetSizingTable      `json:"bet_sizing"`
	InverseBetSizing BetSizingTable      `json:"inverse_bet_sizing"`
	Importance       []FeatureImportance `json:"importance"`
}

// ModelManager wraps a model with the splitter it is evaluated with.
type ModelManager struct {
	model    Model
	splitter Splitter
	cfg      ManagerConfig
	features []string
	trained  bool
}

// NewModelManager creates a new model manager
func NewModelManager(model Model, splitter Splitter, cfg ManagerConfig) (*ModelManager, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if cfg.Threshold < common.MinProbThreshold || cfg.Threshold > common.MaxProbThreshold {
		return nil, fmt.Errorf("threshold must be between %.2f and %.2f, got %.2f",
			common.MinProbThreshold, common.MaxProbThreshold, cfg.Threshold)
	}
	if len(cfg.Ratios) == 0 {
		cfg.Ratios = append([]float64(nil), common.DefaultBetRatios...)
	}
	for _, r := range cfg.Ratios {
		if r <= 0 {
			return nil, fmt.Errorf("bet ratio must be positive, got %v", r)
		}
	}
	if cfg.ImportanceRepeats <= 0 {
		cfg.ImportanceRepeats = 3
	}

	return &ModelManager{model: model, splitter: splitter, cfg: cfg}, nil
}

// RestoreModelManager wraps an already fitted model for inference.
func RestoreModelManager(model Model, features []string, cfg ManagerConfig) *ModelManager {
	return &ModelManager{model: model, cfg: cfg, features: features, trained: true}
}

func (mm *ModelManager) Model() Model { return mm.model }

func (mm *ModelManager) Config() ManagerConfig { return mm.cfg }

// Features returns the feature names the model was fitted on.
func (mm *ModelManager) Features() []string { return mm.features }

// FitPredictEvaluate splits ds, fits the model in-sample, scores the
// out-of-sample rows, and derives metrics, both bet sizing tables, and
// permutation importance from those scores.
func (mm *ModelManager) FitPredictEvaluate(ds dataset.Dataset) (Results, error) {
	start := time.Now()

	train, test, err := mm.splitter.Split(ds)
	if err != nil {
		return Results{}, fmt.Errorf("failed to split dataset: %w", err)
	}

	trainX, trainY := train.XY()
	if err := mm.model.Fit(trainX, trainY); err != nil {
		return Results{}, fmt.Errorf("failed to fit %s: %w", mm.model.Kind(), err)
	}
	mm.features = append([]string(nil), ds.FeatureNames...)
	mm.trained = true

	testX, testY := test.XY()
	probs, err := predictAll(mm.model, testX)
	if err != nil {
		return Results{}, err
	}

	metrics := Evaluate(probs, testY, mm.cfg.Threshold)
	metrics.TrainingSamples = train.Len()

	importance, err := PermutationImportance(mm.model, testX, testY, ds.FeatureNames, mm.cfg.Seed, mm.cfg.ImportanceRepeats)
	if err != nil {
		return Results{}, fmt.Errorf("failed to compute feature importance: %w", err)
	}

	results := Results{
		Metrics:          metrics,
		BetSizing:        computeBetSizing(test, probs, mm.cfg.Ratios, mm.cfg.Threshold, false),
		InverseBetSizing: computeBetSizing(test, probs, mm.cfg.Ratios, mm.cfg.Threshold, true),
		Importance:       importance,
	}

	log.Info().
		Str("model", mm.model.Kind()).
		Int("train_rows", train.Len()).
		Int("test_rows", test.Len()).
		Float64("accuracy", metrics.Accuracy).
		Float64("auc", metrics.AUCScore).
		Float64("approval_rate", metrics.ApprovalRate).
		Dur("elapsed", time.Since(start)).
		Msg("Model evaluated")

	return results, nil
}

// PredictProba scores one standardized feature vector.
func (mm *ModelManager) PredictProba(x []float64) (float64, error) {
	if !mm.trained {
		return 0, ErrNotTrained
	}
	if len(mm.features) > 0 && len(x) != len(mm.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(mm.features), len(x))
	}
	return mm.model.PredictProba(x)
}

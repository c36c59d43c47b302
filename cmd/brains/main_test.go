package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aquitania/internal/cfg"
	"aquitania/internal/ml"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"EUR_USD", []string{"EUR_USD"}},
		{"EUR_USD, USD_JPY ,", []string{"EUR_USD", "USD_JPY"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseList(tt.in), tt.in)
	}
}

func TestModelSpecAndSplit(t *testing.T) {
	config := cfg.Settings{
		ModelKind:    ml.KindLogisticRegression,
		MaxDepth:     4,
		LearningRate: 0.05,
		Epochs:       100,
		TestFraction: 0.2,
		SplitShuffle: true,
		SplitSeed:    7,
	}

	spec := modelSpec(config)
	assert.Equal(t, ml.KindLogisticRegression, spec.Kind)
	assert.Equal(t, 4, spec.MaxDepth)
	assert.Equal(t, 100, spec.Epochs)

	sc := splitConfig(config)
	assert.Equal(t, 0.2, sc.TestFraction)
	assert.True(t, sc.Shuffle)
	assert.Equal(t, int64(7), sc.Seed)
}

func TestSetupLogging_File(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	path := filepath.Join(t.TempDir(), "brains.log")
	closer := setupLogging(cfg.Settings{LogLevel: "debug", LogFormat: "json", LogFile: path})
	log.Info().Str("strategy", "KecheStrategy").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strategy":"KecheStrategy"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestApplyOverrides(t *testing.T) {
	base := func() cfg.Settings {
		return cfg.Settings{
			Currencies:     []string{"EUR_USD"},
			Strategy:       "KecheStrategy",
			Signal:         "keche_entry",
			LiquidationDir: "data/liquidation",
			ModelDir:       "data/model_manager",
			TestFraction:   0.15,
			ModelKind:      ml.KindDecisionTree,
			MaxDepth:       6,
			ProbThreshold:  0.65,
			BetRatios:      []float64{1, 2},
			LogFormat:      "console",
		}
	}

	tests := []struct {
		name    string
		o       overrides
		wantErr bool
	}{
		{"no overrides", overrides{}, false},
		{"currencies", overrides{currencies: "GBP_USD, USD_JPY"}, false},
		{"currency path", overrides{currencies: "../../escaped"}, true},
		{"duplicate currency", overrides{currencies: "EUR_USD,EUR_USD"}, true},
		{"signal path", overrides{signal: "../keche"}, true},
		{"unknown model", overrides{modelKind: "svm"}, true},
		{"depth too large", overrides{maxDepth: 1000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := base()
			err := applyOverrides(&config, tt.o)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.o.currencies != "" {
				assert.Equal(t, parseList(tt.o.currencies), config.Currencies)
			}
		})
	}
}

func TestRun_ReturnsErrors(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CURRENCIES", "EUR_USD")
	t.Setenv("DATA_PATH", dir)
	t.Setenv("LIQUIDATION_DIR", filepath.Join(dir, "liquidation"))
	t.Setenv("MODEL_DIR", filepath.Join(dir, "models"))
	t.Setenv("REPORT_DIR", "-")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FILE", "")
	t.Setenv("METRICS_FILE", "")
	t.Setenv("SCHEDULE", "")

	err := run(overrides{currencies: "../../escaped"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")

	err = run(overrides{schedule: "not a schedule"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")

	// The store was closed on return, so it can be opened again.
	err = run(overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training run failed")
}

func TestCronLogger(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var logger cronLogger
	logger.Info("wake", "now", "2024-01-01")
	assert.Empty(t, buf.String())

	logger.Error(errors.New("boom"), "panic", "stack", "trace")
	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"stack":"trace"`)
	assert.Contains(t, out, `"message":"panic"`)
}

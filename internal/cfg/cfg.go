package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"aquitania/internal/common"
	"aquitania/internal/ml"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Currencies     []string
	Strategy       string
	Signal         string
	DataPath       string
	LiquidationDir string
	ModelDir       string
	ReportDir      string
	ReportFormats  []string
	TestFraction   float64
	SplitShuffle   bool
	SplitSeed      int64
	ModelKind      string
	MaxDepth       int
	MinLeafSize    int
	LearningRate   float64
	Epochs         int
	L2             float64
	ProbThreshold  float64
	BetRatios      []float64
	LogLevel       string
	LogFormat      string
	LogFile        string
	MetricsFile    string
	Schedule       string
}

type ConfigFile struct {
	Strategy struct {
		Name       string   `yaml:"name"`
		Signal     string   `yaml:"signal"`
		Currencies []string `yaml:"currencies"`
	} `yaml:"strategy"`

	Data struct {
		DataPath       string   `yaml:"dataPath"`
		LiquidationDir string   `yaml:"liquidationDir"`
		ModelDir       string   `yaml:"modelDir"`
		ReportDir      string   `yaml:"reportDir"`
		ReportFormats  []string `yaml:"reportFormats"`
	} `yaml:"data"`

	Split struct {
		TestFraction float64 `yaml:"testFraction"`
		Shuffle      bool    `yaml:"shuffle"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"split"`

	Model struct {
		Kind         string  `yaml:"kind"`
		MaxDepth     int     `yaml:"maxDepth"`
		MinLeafSize  int     `yaml:"minLeafSize"`
		LearningRate float64 `yaml:"learningRate"`
		Epochs       int     `yaml:"epochs"`
		L2           float64 `yaml:"l2"`
	} `yaml:"model"`

	Oracle struct {
		ProbThreshold float64   `yaml:"probThreshold"`
		BetRatios     []float64 `yaml:"betRatios"`
	} `yaml:"oracle"`

	System struct {
		LogLevel    string `yaml:"logLevel"`
		LogFormat   string `yaml:"logFormat"`
		LogFile     string `yaml:"logFile"`
		MetricsFile string `yaml:"metricsFile"`
		Schedule    string `yaml:"schedule"`
	} `yaml:"system"`
}

// Load reads settings from the YAML file named by CONFIG_FILE, or from the
// environment when it is unset. A .env file in the working directory is applied
// first when present; variables already set in the process win.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		Currencies:     getListFromEnvOrConfig(common.EnvCurrencies, config.Strategy.Currencies, nil),
		Strategy:       getEnvOrDefault(common.EnvStrategy, orDefault(config.Strategy.Name, common.DefaultStrategy)),
		Signal:         getEnvOrDefault(common.EnvSignal, orDefault(config.Strategy.Signal, common.DefaultSignal)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, orDefault(config.Data.DataPath, common.DefaultDataPath)),
		LiquidationDir: getEnvOrDefault(common.EnvLiquidationDir, orDefault(config.Data.LiquidationDir, common.DefaultLiquidationDir)),
		ModelDir:       getEnvOrDefault(common.EnvModelDir, orDefault(config.Data.ModelDir, common.DefaultModelDir)),
		ReportDir:      getEnvOrDefault(common.EnvReportDir, orDefault(config.Data.ReportDir, common.DefaultReportDir)),
		ReportFormats:  getListFromEnvOrConfig(common.EnvReportFormats, config.Data.ReportFormats, nil),
		TestFraction:   getFloatFromEnvOrConfig(common.EnvTestFraction, config.Split.TestFraction, common.DefaultTestFraction),
		SplitShuffle:   getBoolFromEnvOrConfig(common.EnvSplitShuffle, config.Split.Shuffle),
		SplitSeed:      getInt64FromEnvOrConfig(common.EnvSplitSeed, config.Split.Seed),
		ModelKind:      getEnvOrDefault(common.EnvModelKind, orDefault(config.Model.Kind, common.DefaultModelKind)),
		MaxDepth:       getIntFromEnvOrConfig(common.EnvMaxDepth, config.Model.MaxDepth, common.DefaultMaxDepth),
		MinLeafSize:    config.Model.MinLeafSize,
		LearningRate:   config.Model.LearningRate,
		Epochs:         config.Model.Epochs,
		L2:             config.Model.L2,
		ProbThreshold:  getFloatFromEnvOrConfig(common.EnvProbThreshold, config.Oracle.ProbThreshold, common.DefaultProbThreshold),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
		LogFile:        getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
		MetricsFile:    getEnvOrDefault(common.EnvMetricsFile, config.System.MetricsFile),
		Schedule:       getEnvOrDefault(common.EnvSchedule, config.System.Schedule),
	}

	ratios, err := getRatiosFromEnvOrConfig(common.EnvBetRatios, config.Oracle.BetRatios)
	if err != nil {
		return Settings{}, err
	}
	settings.BetRatios = ratios

	if err := Validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	currencies := splitOrDefault(os.Getenv(common.EnvCurrencies), nil)
	if len(currencies) == 0 {
		return Settings{}, fmt.Errorf("required environment variable %s is missing", common.EnvCurrencies)
	}

	settings := Settings{
		Currencies:     currencies,
		Strategy:       getEnvOrDefault(common.EnvStrategy, common.DefaultStrategy),
		Signal:         getEnvOrDefault(common.EnvSignal, common.DefaultSignal),
		DataPath:       getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		LiquidationDir: getEnvOrDefault(common.EnvLiquidationDir, common.DefaultLiquidationDir),
		ModelDir:       getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		ReportDir:      getEnvOrDefault(common.EnvReportDir, common.DefaultReportDir),
		ReportFormats:  splitOrDefault(os.Getenv(common.EnvReportFormats), nil),
		TestFraction:   getFloatOrDefault(common.EnvTestFraction, common.DefaultTestFraction),
		SplitShuffle:   getBoolOrDefault(common.EnvSplitShuffle, false),
		SplitSeed:      getInt64OrDefault(common.EnvSplitSeed, 0),
		ModelKind:      getEnvOrDefault(common.EnvModelKind, common.DefaultModelKind),
		MaxDepth:       getIntOrDefault(common.EnvMaxDepth, common.DefaultMaxDepth),
		ProbThreshold:  getFloatOrDefault(common.EnvProbThreshold, common.DefaultProbThreshold),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:      getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		LogFile:        os.Getenv(common.EnvLogFile),
		MetricsFile:    os.Getenv(common.EnvMetricsFile),
		Schedule:       os.Getenv(common.EnvSchedule),
	}

	ratios, err := getRatiosFromEnvOrConfig(common.EnvBetRatios, nil)
	if err != nil {
		return Settings{}, err
	}
	settings.BetRatios = ratios

	if err := Validate(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getListFromEnvOrConfig(key string, configValue, def []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, def)
	}
	if len(configValue) > 0 {
		return configValue
	}
	return def
}

func getIntFromEnvOrConfig(key string, configValue, def int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getInt64FromEnvOrConfig(key string, configValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue, def float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

func getRatiosFromEnvOrConfig(key string, configValue []float64) ([]float64, error) {
	if env := os.Getenv(key); env != "" {
		var ratios []float64
		for _, s := range splitOrDefault(env, nil) {
			r, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %q: %w", key, s, err)
			}
			ratios = append(ratios, r)
		}
		return ratios, nil
	}
	if len(configValue) > 0 {
		return configValue, nil
	}
	return append([]float64(nil), common.DefaultBetRatios...), nil
}

// Validate performs range and consistency checks on settings. Callers that
// override loaded values must run it again before use.
func Validate(settings *Settings) error {
	if len(settings.Currencies) == 0 {
		return errors.New(common.ErrMsgCurrencyRequired)
	}
	seen := make(map[string]struct{}, len(settings.Currencies))
	for _, c := range settings.Currencies {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("currency names cannot be empty")
		}
		if strings.ContainsAny(c, `/\`) {
			return fmt.Errorf("currency %q must not contain path separators", c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("currency %s is listed more than once", c)
		}
		seen[c] = struct{}{}
	}

	if settings.Strategy == "" {
		return errors.New(common.ErrMsgStrategyRequired)
	}
	if settings.Signal == "" {
		return errors.New(common.ErrMsgSignalRequired)
	}
	if strings.ContainsAny(settings.Signal, `/\`) {
		return fmt.Errorf("signal %q must not contain path separators", settings.Signal)
	}

	if settings.LiquidationDir == "" {
		return fmt.Errorf("liquidation directory cannot be empty")
	}
	if settings.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}

	if settings.TestFraction <= 0 || settings.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be between 0 and 1 (exclusive), got %f", settings.TestFraction)
	}

	if !isKnown(settings.ModelKind, ml.Kinds()) {
		return fmt.Errorf("unknown model kind %q, expected one of %v", settings.ModelKind, ml.Kinds())
	}
	if settings.MaxDepth <= 0 || settings.MaxDepth > common.MaxTreeDepth {
		return fmt.Errorf("max depth must be between 1 and %d, got %d", common.MaxTreeDepth, settings.MaxDepth)
	}
	if settings.MinLeafSize < 0 {
		return fmt.Errorf("min leaf size cannot be negative, got %d", settings.MinLeafSize)
	}
	if settings.LearningRate < 0 || settings.Epochs < 0 || settings.L2 < 0 {
		return fmt.Errorf("learning rate, epochs and l2 cannot be negative")
	}

	if settings.ProbThreshold < common.MinProbThreshold || settings.ProbThreshold > common.MaxProbThreshold {
		return fmt.Errorf("probability threshold must be between %.2f and %.2f, got %f",
			common.MinProbThreshold, common.MaxProbThreshold, settings.ProbThreshold)
	}
	if len(settings.BetRatios) == 0 {
		return fmt.Errorf("at least one bet ratio is required")
	}
	for _, r := range settings.BetRatios {
		if r <= 0 || r > common.MaxBetRatio {
			return fmt.Errorf("bet ratio must be between 0 and %.0f, got %f", common.MaxBetRatio, r)
		}
	}

	for _, f := range settings.ReportFormats {
		if !isKnown(f, common.ReportFormats) {
			return fmt.Errorf("unknown report format %q, expected one of %v", f, common.ReportFormats)
		}
	}
	if settings.LogFormat != "console" && settings.LogFormat != "json" {
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	return nil
}

func isKnown(v string, known []string) bool {
	for _, k := range known {
		if v == k {
			return true
		}
	}
	return false
}

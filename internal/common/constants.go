package common

// Currency instruments
const (
	EURUSD = "EUR_USD"
	GBPUSD = "GBP_USD"
	USDJPY = "USD_JPY"
	AUDUSD = "AUD_USD"
	USDCAD = "USD_CAD"
)

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvCurrencies     = "CURRENCIES"
	EnvStrategy       = "STRATEGY"
	EnvSignal         = "SIGNAL"
	EnvDataPath       = "DATA_PATH"
	EnvLiquidationDir = "LIQUIDATION_DIR"
	EnvModelDir       = "MODEL_DIR"
	EnvReportDir      = "REPORT_DIR"
	EnvReportFormats  = "REPORT_FORMATS"
	EnvTestFraction   = "TEST_FRACTION"
	EnvSplitShuffle   = "SPLIT_SHUFFLE"
	EnvSplitSeed      = "SPLIT_SEED"
	EnvModelKind      = "MODEL_KIND"
	EnvMaxDepth       = "MAX_DEPTH"
	EnvProbThreshold  = "PROB_THRESHOLD"
	EnvBetRatios      = "BET_RATIOS"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvLogFile        = "LOG_FILE"
	EnvMetricsFile    = "METRICS_FILE"
	EnvSchedule       = "SCHEDULE"
)

// Configuration defaults
const (
	DefaultStrategy       = "KecheStrategy"
	DefaultSignal         = "keche_entry"
	DefaultDataPath       = "data"
	DefaultLiquidationDir = "data/liquidation"
	DefaultModelDir       = "data/model_manager"
	DefaultReportDir      = "data/reports"
	DefaultTestFraction   = 0.15
	DefaultModelKind      = "decision_tree"
	DefaultMaxDepth       = 6
	DefaultProbThreshold  = 0.65
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
)

// DefaultBetRatios are the reward/risk ratios bet sizing is computed for.
var DefaultBetRatios = []float64{1.0, 1.5, 2.0, 3.0}

// File layout
const (
	// LabelFileSuffix terminates every consolidated outcome file: {currency}_{signal}_CONSOLIDATE.
	LabelFileSuffix = "CONSOLIDATE"
	// ArtifactExt is appended to the strategy name to build the artifact file name.
	ArtifactExt = ".json"
	DBFileName  = "aquitania-data.db"
)

// Common error messages
const (
	ErrMsgCurrencyRequired = "at least one currency is required"
	ErrMsgSignalRequired   = "signal entry is required"
	ErrMsgStrategyRequired = "strategy name is required"
)

// Validation constants
const (
	MinProbThreshold = 0.5
	MaxProbThreshold = 0.99
	MaxTreeDepth     = 32
	MaxBetRatio      = 20.0
)

// ReportFormats lists the training report formats.
var ReportFormats = []string{"txt", "csv", "json", "xlsx", "pdf"}

// Package metrics provides Prometheus metrics collection for the strategy trainer.
// A training run is a batch job, so the metrics are written to a file for the
// node exporter textfile collector instead of being served over HTTP.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for training runs.
type Metrics struct {
	// Run metrics
	RunsTotal    *prometheus.CounterVec // Training runs started, by strategy
	RunFailures  *prometheus.CounterVec // Training runs that returned an error, by strategy
	RunDuration  prometheus.Histogram   // Wall time of a training run
	LabelFiles   prometheus.Counter     // Label files read
	ArtifactSize *prometheus.GaugeVec   // Size of the last written artifact

	// Dataset metrics
	RawRows     *prometheus.GaugeVec // Raw feature rows loaded
	DatasetRows *prometheus.GaugeVec // Rows left after the transform
	TrainRows   *prometheus.GaugeVec // In-sample rows
	TestRows    *prometheus.GaugeVec // Out-of-sample rows

	// Model metrics
	Accuracy  *prometheus.GaugeVec
	Precision *prometheus.GaugeVec
	Recall    *prometheus.GaugeVec
	AUC       *prometheus.GaugeVec
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	byStrategy := []string{"strategy"}

	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, byStrategy)
	}

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "brains_runs_total",
			Help: "Total number of training runs started",
		}, byStrategy),
		RunFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "brains_run_failures_total",
			Help: "Total number of failed training runs",
		}, byStrategy),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "brains_run_duration_seconds",
			Help:    "Duration of a training run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		LabelFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "brains_label_files_loaded_total",
			Help: "Total number of label files loaded",
		}),
		ArtifactSize: gauge("brains_artifact_bytes", "Size of the last written strategy artifact in bytes"),
		RawRows:      gauge("brains_raw_rows", "Raw feature rows loaded for the last run"),
		DatasetRows:  gauge("brains_dataset_rows", "Rows in the transformed dataset of the last run"),
		TrainRows:    gauge("brains_train_rows", "In-sample rows of the last run"),
		TestRows:     gauge("brains_test_rows", "Out-of-sample rows of the last run"),
		Accuracy:     gauge("brains_model_accuracy", "Out-of-sample accuracy of the last model"),
		Precision:    gauge("brains_model_precision", "Out-of-sample precision of the last model"),
		Recall:       gauge("brains_model_recall", "Out-of-sample recall of the last model"),
		AUC:          gauge("brains_model_auc", "Out-of-sample ROC AUC of the last model"),
	}
}

// WriteTextfile writes everything gathered by g to path in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

package metrics

import "time"

// MetricsWrapper adapts Metrics to the orchestrator's metrics interface.
type MetricsWrapper struct {
	m *Metrics
}

// NewWrapper creates a new metrics wrapper
func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) RunStarted(strategy string) {
	w.m.RunsTotal.WithLabelValues(strategy).Inc()
}

func (w *MetricsWrapper) RunFailed(strategy string) {
	w.m.RunFailures.WithLabelValues(strategy).Inc()
}

func (w *MetricsWrapper) RunDuration(d time.Duration) {
	w.m.RunDuration.Observe(d.Seconds())
}

func (w *MetricsWrapper) LabelFileLoaded() {
	w.m.LabelFiles.Inc()
}

func (w *MetricsWrapper) DatasetRows(strategy string, raw, transformed int) {
	w.m.RawRows.WithLabelValues(strategy).Set(float64(raw))
	w.m.DatasetRows.WithLabelValues(strategy).Set(float64(transformed))
}

func (w *MetricsWrapper) SplitRows(strategy string, train, test int) {
	w.m.TrainRows.WithLabelValues(strategy).Set(float64(train))
	w.m.TestRows.WithLabelValues(strategy).Set(float64(test))
}

func (w *MetricsWrapper) ModelEvaluated(strategy string, accuracy, precision, recall, auc float64) {
	w.m.Accuracy.WithLabelValues(strategy).Set(accuracy)
	w.m.Precision.WithLabelValues(strategy).Set(precision)
	w.m.Recall.WithLabelValues(strategy).Set(recall)
	w.m.AUC.WithLabelValues(strategy).Set(auc)
}

func (w *MetricsWrapper) ArtifactWritten(strategy string, bytes int) {
	w.m.ArtifactSize.WithLabelValues(strategy).Set(float64(bytes))
}

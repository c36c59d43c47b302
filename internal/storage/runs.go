package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// TrainingRun is one entry of the training log
type TrainingRun struct {
	Strategy     string        `json:"strategy"`
	Signal       string        `json:"signal"`
	ModelKind    string        `json:"model_kind"`
	ArtifactID   string        `json:"artifact_id,omitempty"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	RawRows      int           `json:"raw_rows"`
	DatasetRows  int           `json:"dataset_rows"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	Accuracy     float64       `json:"accuracy"`
	Precision    float64       `json:"precision"`
	Recall       float64       `json:"recall"`
	AUC          float64       `json:"auc"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// RecordTrainingRun appends a run to the training log
func (s *Store) RecordTrainingRun(run TrainingRun) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(trainingRunsBucket))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal training run: %w", err)
		}

		return b.Put(rowKey(run.Strategy, run.StartedAt), data)
	})
}

// ListTrainingRuns returns a strategy's runs, oldest first
func (s *Store) ListTrainingRuns(strategy string) ([]TrainingRun, error) {
	var runs []TrainingRun

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(trainingRunsBucket)).Cursor()
		prefix := currencyPrefix(strategy)

		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var run TrainingRun
			if err := json.Unmarshal(v, &run); err != nil {
				continue
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}

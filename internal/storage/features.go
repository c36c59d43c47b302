package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"aquitania/internal/dataset"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

// FeatureRecord is the stored form of one indicator row
type FeatureRecord struct {
	Currency  string    `json:"currency"`
	Signal    string    `json:"signal"`
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"`
}

// StoreFeatures stores a single indicator row for a signal
func (s *Store) StoreFeatures(signal string, columns []string, row dataset.FeatureRow) error {
	return s.StoreFeatureBatch(signal, dataset.FeatureTable{Columns: columns, Rows: []dataset.FeatureRow{row}})
}

// StoreFeatureBatch stores all rows of a table in one transaction. The first
// batch written for a signal fixes its column set; later batches must match it.
// Rows holding NaN or Inf values are skipped with a warning.
func (s *Store) StoreFeatureBatch(signal string, table dataset.FeatureTable) error {
	if signal == "" {
		return fmt.Errorf("signal is required")
	}
	if len(table.Columns) == 0 {
		return fmt.Errorf("feature columns are required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := ensureColumns(tx, signal, table.Columns); err != nil {
			return err
		}

		b, err := tx.Bucket([]byte(featuresBucket)).CreateBucketIfNotExists([]byte(signal))
		if err != nil {
			return fmt.Errorf("create signal bucket %s: %w", signal, err)
		}

		skipped := 0
		for _, row := range table.Rows {
			if len(row.Values) != len(table.Columns) {
				return fmt.Errorf("row %s@%s has %d values, expected %d",
					row.Currency, row.Timestamp.Format(time.RFC3339), len(row.Values), len(table.Columns))
			}
			if !finite(row.Values) {
				skipped++
				continue
			}

			data, err := json.Marshal(FeatureRecord{
				Currency:  row.Currency,
				Signal:    signal,
				Timestamp: row.Timestamp,
				Values:    row.Values,
			})
			if err != nil {
				return fmt.Errorf("marshal feature record: %w", err)
			}

			if err := b.Put(rowKey(row.Currency, row.Timestamp), data); err != nil {
				return err
			}
		}
		if skipped > 0 {
			log.Warn().Str("signal", signal).Int("skipped", skipped).Msg("Skipped feature rows with non-finite values")
		}
		return nil
	})
}

func finite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func ensureColumns(tx *bbolt.Tx, signal string, columns []string) error {
	b := tx.Bucket([]byte(featureColumnsBucket))

	if existing := b.Get([]byte(signal)); existing != nil {
		var stored []string
		if err := json.Unmarshal(existing, &stored); err != nil {
			return fmt.Errorf("unmarshal columns for %s: %w", signal, err)
		}
		if len(stored) != len(columns) {
			return fmt.Errorf("signal %s has columns %v, got %v", signal, stored, columns)
		}
		for i := range stored {
			if stored[i] != columns[i] {
				return fmt.Errorf("signal %s has columns %v, got %v", signal, stored, columns)
			}
		}
		return nil
	}

	data, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	return b.Put([]byte(signal), data)
}

// FeatureColumns returns the column names stored for a signal
func (s *Store) FeatureColumns(signal string) ([]string, error) {
	var columns []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(featureColumnsBucket)).Get([]byte(signal))
		if data == nil {
			return fmt.Errorf("signal %s: %w", signal, ErrNoFeatures)
		}
		return json.Unmarshal(data, &columns)
	})
	return columns, err
}

// LoadFeatures builds the raw feature table for a signal across currencies.
// Rows are grouped by currency in list order and sorted by time within each.
func (s *Store) LoadFeatures(currencies []string, signal string) (dataset.FeatureTable, error) {
	columns, err := s.FeatureColumns(signal)
	if err != nil {
		return dataset.FeatureTable{}, err
	}

	table := dataset.FeatureTable{Columns: columns}

	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket)).Bucket([]byte(signal))
		if b == nil {
			return fmt.Errorf("signal %s: %w", signal, ErrNoFeatures)
		}

		for _, currency := range currencies {
			c := b.Cursor()
			prefix := currencyPrefix(currency)
			for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
				var record FeatureRecord
				if err := json.Unmarshal(v, &record); err != nil {
					return fmt.Errorf("unmarshal feature %s: %w", k, err)
				}
				table.Rows = append(table.Rows, dataset.FeatureRow{
					Currency:  record.Currency,
					Timestamp: record.Timestamp,
					Values:    record.Values,
				})
			}
		}
		return nil
	})
	if err != nil {
		return dataset.FeatureTable{}, err
	}

	return table, nil
}

// GetFeaturesInRange returns a currency's rows for a signal within [start, end]
func (s *Store) GetFeaturesInRange(currency, signal string, start, end time.Time) ([]FeatureRecord, error) {
	var records []FeatureRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket)).Bucket([]byte(signal))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		prefix := currencyPrefix(currency)
		endKey := rowKey(currency, end)

		for k, v := c.Seek(rowKey(currency, start)); k != nil && compareKeys(k, endKey) <= 0; k, v = c.Next() {
			if !hasPrefix(k, prefix) {
				break
			}

			var record FeatureRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

// ForEachFeature walks every stored row of a signal in key order
func (s *Store) ForEachFeature(signal string, fn func(FeatureRecord) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket)).Bucket([]byte(signal))
		if b == nil {
			return fmt.Errorf("signal %s: %w", signal, ErrNoFeatures)
		}
		return b.ForEach(func(_, v []byte) error {
			var record FeatureRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			return fn(record)
		})
	})
}

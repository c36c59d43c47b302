// Package storage provides persistent data storage for the strategy trainer.
// It uses BoltDB as the underlying storage engine to store the indicator rows
// recorded whenever a signal fires, and a log of past training runs.
//
// Indicator rows live in one nested bucket per signal, keyed by currency and
// timestamp so that a cursor seek returns a currency's rows in time order.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"aquitania/internal/common"

	"go.etcd.io/bbolt"
)

const (
	featuresBucket       = "features"        // Parent bucket; one child bucket per signal
	featureColumnsBucket = "feature_columns" // Column names per signal
	trainingRunsBucket   = "training_runs"   // Training run log
)

// ErrNoFeatures is returned when nothing has been stored for a signal.
var ErrNoFeatures = errors.New("no features stored")

// Store provides persistent storage for trainer data using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
// Returns an error if the database cannot be opened or buckets cannot be created.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, common.DBFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{featuresBucket, featureColumnsBucket, trainingRunsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// rowKey builds "currency/timestamp". The timestamp is stored offset-binary as
// fixed-width hex, so keys sort chronologically within a currency on both sides
// of the epoch.
func rowKey(currency string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s/%016x", currency, uint64(ts.UnixNano())^(1<<63)))
}

func currencyPrefix(currency string) []byte {
	return []byte(currency + "/")
}

func hasPrefix(data, prefix []byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aquitania/internal/dataset"
	"aquitania/internal/ml"
	"aquitania/internal/transform"
)

// SchemaVersion is the artifact layout written by Save.
const SchemaVersion = 1

// ErrUnsupportedSchema is returned by Load for artifacts of another layout.
var ErrUnsupportedSchema = errors.New("unsupported artifact schema")

type artifact struct {
	SchemaVersion    int                    `json:"schema_version"`
	ID               string                 `json:"id"`
	Strategy         string                 `json:"strategy"`
	CreatedAt        time.Time              `json:"created_at"`
	Signal           dataset.Signal         `json:"signal"`
	ModelKind        string                 `json:"model_kind"`
	Model            json.RawMessage        `json:"model"`
	Features         []string               `json:"features"`
	Transformer      transform.State        `json:"transformer"`
	BetSizing        ml.BetSizingTable      `json:"bet_sizing"`
	InverseBetSizing ml.BetSizingTable      `json:"inverse_bet_sizing"`
	Metrics          ml.ModelMetrics        `json:"metrics"`
	Importance       []ml.FeatureImportance `json:"importance"`
	Threshold        float64                `json:"threshold"`
}

// Marshal encodes o in the current schema.
func Marshal(o *Oracle) ([]byte, error) {
	model, err := json.Marshal(o.manager.Model())
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}

	return json.MarshalIndent(artifact{
		SchemaVersion:    SchemaVersion,
		ID:               o.ID,
		Strategy:         o.Strategy,
		CreatedAt:        o.CreatedAt,
		Signal:           o.Signal,
		ModelKind:        o.ModelKind(),
		Model:            model,
		Features:         o.Features,
		Transformer:      o.transformer.State(),
		BetSizing:        o.BetSizing,
		InverseBetSizing: o.InverseBetSizing,
		Metrics:          o.Metrics,
		Importance:       o.Importance,
		Threshold:        o.Threshold,
	}, "", "  ")
}

// Unmarshal decodes an artifact, rejecting unknown schema versions.
func Unmarshal(data []byte) (*Oracle, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if header.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("version %d: %w", header.SchemaVersion, ErrUnsupportedSchema)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}

	model, err := ml.DecodeModel(a.ModelKind, a.Model)
	if err != nil {
		return nil, err
	}
	tr, err := transform.FromState(a.Transformer)
	if err != nil {
		return nil, err
	}

	return &Oracle{
		ID:               a.ID,
		Strategy:         a.Strategy,
		CreatedAt:        a.CreatedAt,
		Signal:           a.Signal,
		Features:         a.Features,
		BetSizing:        a.BetSizing,
		InverseBetSizing: a.InverseBetSizing,
		Metrics:          a.Metrics,
		Importance:       a.Importance,
		Threshold:        a.Threshold,
		manager:          ml.RestoreModelManager(model, a.Features, ml.ManagerConfig{Threshold: a.Threshold}),
		transformer:      tr,
	}, nil
}

// Save writes o to path, replacing any existing file. The bytes go to a
// temporary file in the same directory that is synced and renamed over path,
// so readers see either the old artifact or the new one.
func Save(path string, o *Oracle) (int, error) {
	data, err := Marshal(o)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return len(data), nil
}

// Load reads an artifact written by Save.
func Load(path string) (*Oracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	o, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/shared/storage/object"
)

// Exporter is the snapshot capability injected into the orchestrator.
// Visual rendering of a snapshot belongs to the presentation layer; the
// orchestrator only triggers it and reports where the snapshot went.
type Exporter interface {
	Export(ctx context.Context, analysisID string, result analysis.Result) (location string, err error)
}

// SnapshotExporter persists the result as a JSON document in an object
// store for an external renderer to pick up.
type SnapshotExporter struct {
	Store object.ObjectStore
}

// Export writes the snapshot and returns its storage key.
func (e *SnapshotExporter) Export(ctx context.Context, analysisID string, result analysis.Result) (string, error) {
	if e.Store == nil {
		return "", fmt.Errorf("snapshot store not configured")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	name := fmt.Sprintf("%s.json", analysisID)
	key, _, err := e.Store.Save(ctx, "snapshots", name, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return key, nil
}

var _ Exporter = (*SnapshotExporter)(nil)

package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"attrinfer/internal/profile"
)

// WritePredictions stores one JSON file per attribute type under dir, named
// after the type. The files can be read back with LoadTable.
func WritePredictions(dir string, preds map[profile.Type]profile.Predictions) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for typ, p := range preds {
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s predictions: %w", typ, err)
		}
		data = append(data, '\n')
		path := filepath.Join(dir, string(typ)+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

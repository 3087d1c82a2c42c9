package history

// This file contains the build history store: a single JSON document that is
// read, modified and rewritten as a whole.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perfgo/unirelease/model"
	"github.com/rs/zerolog"
)

// Load reads the build history at path. A missing file is an empty history.
func Load(path string) (model.BuildHistory, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.BuildHistory{}, nil
	}
	if err != nil {
		return model.BuildHistory{}, fmt.Errorf("failed to read build history: %w", err)
	}

	var h model.BuildHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return model.BuildHistory{}, fmt.Errorf("failed to parse build history %s: %w", path, err)
	}
	return h, nil
}

// Prepend adds entry at the front of the history at path and rewrites the
// file.
func Prepend(logger zerolog.Logger, path string, entry model.BuildLogEntry) error {
	h, err := Load(path)
	if err != nil {
		return err
	}
	h.Prepend(entry)

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal build history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create build history directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write build history: %w", err)
	}

	logger.Debug().
		Str("path", path).
		Str("version", entry.Ver).
		Int("entries", len(h.Builds)).
		Msg("Recorded build history entry")
	return nil
}

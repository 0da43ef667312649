// Package archive writes per-game action logs to disk. The core hands logs
// off fire-and-forget; a failed write loses only the archived copy, never
// the match record.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const gameActionsDir = "game_actions"

type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter ensures the archive directory exists under dataDir.
func NewWriter(dataDir string, logger *zap.Logger) (*Writer, error) {
	dir := filepath.Join(dataDir, gameActionsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Writer{dir: dir, logger: logger}, nil
}

// SaveGameLog writes the rounds of one game as JSON, named after its game
// ID.
func (w *Writer) SaveGameLog(gameID string, rounds [][]json.RawMessage) error {
	data, err := json.Marshal(map[string]interface{}{
		"gameId":  gameID,
		"actions": rounds,
	})
	if err != nil {
		return fmt.Errorf("failed to encode game log: %w", err)
	}

	path := filepath.Join(w.dir, gameID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write game log: %w", err)
	}

	w.logger.Debug("Game log archived", zap.String("path", path))
	return nil
}

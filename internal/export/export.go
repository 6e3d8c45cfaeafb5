// Package export writes the finished artifact and its edit log to a
// user-chosen destination. The artifact export is a plain file copy; the
// edit log is a human-readable cut sheet plus a JSON sidecar.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/reelcut/reelcut-agent/internal/history"
)

// Log is the JSON sidecar written next to an exported artifact.
type Log struct {
	SessionID    string          `json:"session_id"`
	OriginalPath string          `json:"original_path"`
	ExportedPath string          `json:"exported_path"`
	EditCount    int             `json:"edit_count"`
	Chain        []string        `json:"chain"`
	Entries      []history.Entry `json:"entries,omitempty"`
	ExportedAt   time.Time       `json:"exported_at"`
}

// CopyArtifact copies the current artifact to dest. The source is never
// touched; a partial destination is removed on failure.
func CopyArtifact(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy artifact: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("flush destination: %w", err)
	}
	return nil
}

// WriteLog writes the JSON sidecar next to the exported artifact and returns
// its path.
func WriteLog(exportedPath string, log Log) (string, error) {
	log.ExportedPath = exportedPath
	if log.ExportedAt.IsZero() {
		log.ExportedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal edit log: %w", err)
	}

	ext := filepath.Ext(exportedPath)
	path := exportedPath[:len(exportedPath)-len(ext)] + ".editlog.json"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write edit log: %w", err)
	}
	return path, nil
}

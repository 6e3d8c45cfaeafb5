package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/history"
)

// GenerateCutSheet renders the journal as a human-readable edit listing, one
// numbered line per event, suitable for review alongside the exported file.
func GenerateCutSheet(title string, entries []history.Entry) string {
	lines := []string{
		fmt.Sprintf("EDIT LOG: %s", title),
		"",
	}

	step := 0
	for _, e := range entries {
		switch e.Kind {
		case history.EntryLoad:
			lines = append(lines, fmt.Sprintf("     LOADED   %s", filepath.Base(e.ArtifactPath)))
		case history.EntryCommit:
			step++
			lines = append(lines, fmt.Sprintf("%03d  %-12s %s", step, e.Action, filepath.Base(e.ArtifactPath)))
		case history.EntryUndo:
			lines = append(lines, fmt.Sprintf("     UNDO     -> %s", filepath.Base(e.ArtifactPath)))
		case history.EntryRedo:
			lines = append(lines, fmt.Sprintf("     REDO     -> %s", filepath.Base(e.ArtifactPath)))
		case history.EntryExport:
			lines = append(lines, fmt.Sprintf("     EXPORTED %s", filepath.Base(e.ArtifactPath)))
		}
	}

	if step == 0 {
		lines = append(lines, "     (no edits applied)")
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

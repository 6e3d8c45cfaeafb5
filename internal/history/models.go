package history

import (
	"crypto/rand"
	"fmt"
	"time"
)

const (
	SessionStatusActive      = "active"
	SessionStatusClosed      = "closed"
	SessionStatusInterrupted = "interrupted"

	// Journal entry kinds.
	EntryLoad   = "load"
	EntryCommit = "commit"
	EntryUndo   = "undo"
	EntryRedo   = "redo"
	EntryExport = "export"
)

// Session is the journal record of one editing session.
type Session struct {
	ID           string     `json:"id"`
	OriginalPath string     `json:"original_path"`
	WorkingDir   string     `json:"working_dir"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Entry is one journaled history event. The journal is advisory: the
// in-memory Manager stays authoritative for undo/redo state.
type Entry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Seq          int       `json:"seq"`
	Kind         string    `json:"kind"`
	Action       string    `json:"action,omitempty"`
	ArtifactPath string    `json:"artifact_path"`
	ParamsJSON   string    `json:"params_json,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

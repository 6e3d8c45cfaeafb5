package api

import (
	"time"

	"github.com/reelcut/reelcut-agent/internal/editor"
	"github.com/reelcut/reelcut-agent/internal/history"
	"github.com/reelcut/reelcut-agent/internal/media"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State    string        `json:"state"`
	Editor   editor.Status `json:"editor"`
	Position string        `json:"position"`
	Duration string        `json:"duration"`
}

func statusResponse(state string, st editor.Status) StatusResponse {
	return StatusResponse{
		State:    state,
		Editor:   st,
		Position: media.FormatTimecode(st.PositionSec),
		Duration: media.FormatTimecode(st.DurationSec),
	}
}

type LoadRequest struct {
	Path string `json:"path"`
}

type CommandRequest struct {
	Command string `json:"command"`
}

type EditRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"parameters,omitempty"`
}

type EditResponse struct {
	Status     string        `json:"status"`
	OutputPath string        `json:"output_path,omitempty"`
	Editor     editor.Status `json:"editor"`
}

type HistoryStepResponse struct {
	CurrentPath string        `json:"current_path"`
	Editor      editor.Status `json:"editor"`
}

type ExportRequest struct {
	DestPath string `json:"dest_path"`
}

type ExportResponse struct {
	ExportedPath string `json:"exported_path"`
}

type PlayRequest struct {
	FromSec *float64 `json:"from_sec,omitempty"`
}

type SeekRequest struct {
	Sec float64 `json:"sec"`
}

type SeekResponse struct {
	PositionSec float64 `json:"position_sec"`
}

type SessionResponse struct {
	ID           string `json:"id"`
	OriginalPath string `json:"original_path"`
	WorkingDir   string `json:"working_dir"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	ClosedAt     string `json:"closed_at,omitempty"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type EntryResponse struct {
	Seq          int    `json:"seq"`
	Kind         string `json:"kind"`
	Action       string `json:"action,omitempty"`
	ArtifactPath string `json:"artifact_path"`
	CreatedAt    string `json:"created_at"`
}

type EntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SessionToResponse(s *history.Session) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		OriginalPath: s.OriginalPath,
		WorkingDir:   s.WorkingDir,
		Status:       s.Status,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		resp.ClosedAt = s.ClosedAt.Format(time.RFC3339)
	}
	return resp
}

func EntryToResponse(e *history.Entry) EntryResponse {
	return EntryResponse{
		Seq:          e.Seq,
		Kind:         e.Kind,
		Action:       e.Action,
		ArtifactPath: e.ArtifactPath,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

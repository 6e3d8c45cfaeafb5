// Package editor orchestrates one editing session: it owns the version
// chain, drives the dispatcher, keeps the preview on the current artifact,
// and journals every history event. All operations are serialized on one
// mutex so the chain, preview, and journal can never diverge mid-edit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reelcut/reelcut-agent/internal/backend"
	"github.com/reelcut/reelcut-agent/internal/dispatch"
	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/history"
	"github.com/reelcut/reelcut-agent/internal/preview"
	"github.com/reelcut/reelcut-agent/internal/translate"
)

// ErrNoVideoLoaded mirrors the dispatcher's sentinel for operations issued
// before a load.
var ErrNoVideoLoaded = dispatch.ErrNoVideoLoaded

// Status is a snapshot of the session for UI and API consumers.
type Status struct {
	Loaded       bool    `json:"loaded"`
	OriginalPath string  `json:"original_path,omitempty"`
	CurrentPath  string  `json:"current_path,omitempty"`
	EditCount    int     `json:"edit_count"`
	CanUndo      bool    `json:"can_undo"`
	CanRedo      bool    `json:"can_redo"`
	DurationSec  float64 `json:"duration_sec"`
	Playing      bool    `json:"playing"`
	PositionSec  float64 `json:"position_sec"`
	SessionID    string  `json:"session_id,omitempty"`
}

// Session serializes all editing operations for one loaded video.
type Session struct {
	mu sync.Mutex

	history    *history.Manager
	dispatcher *dispatch.Dispatcher
	preview    *preview.Engine
	backend    backend.Backend
	translator translate.Translator
	repo       history.Repository
	editsDir   string
	logger     *slog.Logger

	journalID  string
	journalSeq int
}

func NewSession(
	h *history.Manager,
	d *dispatch.Dispatcher,
	p *preview.Engine,
	b backend.Backend,
	tr translate.Translator,
	repo history.Repository,
	editsDir string,
	logger *slog.Logger,
) *Session {
	return &Session{
		history:    h,
		dispatcher: d,
		preview:    p,
		backend:    b,
		translator: tr,
		repo:       repo,
		editsDir:   editsDir,
		logger:     logger,
	}
}

// LoadVideo makes path the session's original artifact. Any previous session
// state is discarded. On any failure the session is left with nothing
// loaded.
func (s *Session) LoadVideo(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", backend.ErrMissingFile, path)
	}

	probe, err := s.backend.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("source is not readable: %w", err)
	}

	s.preview.Release()

	if err := s.preview.Load(ctx, path); err != nil {
		s.history.Reset()
		return fmt.Errorf("load preview: %w", err)
	}

	s.history.SetOriginal(path)
	s.history.SetDuration(probe.Duration)

	s.closeJournalLocked(ctx, history.SessionStatusClosed)
	s.openJournalLocked(ctx, path)
	s.journalLocked(ctx, history.EntryLoad, "", path, "")

	s.logger.Info("video loaded",
		"path", path,
		"duration_sec", probe.Duration,
		"fps", probe.FrameRate,
	)
	return nil
}

// ApplyCommand translates free text into a structured request and applies
// it.
func (s *Session) ApplyCommand(ctx context.Context, command string) (*dispatch.Outcome, error) {
	result, err := s.translator.Translate(ctx, command)
	if err != nil {
		if errors.Is(err, translate.ErrUnrecognized) {
			return nil, fmt.Errorf("%w: command not understood", dispatch.ErrInvalidRequest)
		}
		return nil, fmt.Errorf("translate command: %w", err)
	}
	return s.ApplyRequest(ctx, dispatch.Request{Action: result.Action, Params: result.Params})
}

// ApplyRequest dispatches one structured edit. On success the preview is
// moved onto the new artifact and its duration re-measured.
func (s *Session) ApplyRequest(ctx context.Context, req dispatch.Request) (*dispatch.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preview.Pause()

	outcome, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	if outcome.Status == dispatch.StatusApplied {
		s.refreshCurrentLocked(ctx)
		s.journalLocked(ctx, history.EntryCommit, req.Action, outcome.OutputPath, "")
	}
	return outcome, nil
}

// Undo steps the chain back one artifact and returns the new current path.
func (s *Session) Undo(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.history.Undo()
	if err != nil {
		return "", err
	}
	s.refreshCurrentLocked(ctx)
	s.journalLocked(ctx, history.EntryUndo, "", path, "")
	s.logger.Info("undo", "current", filepath.Base(path))
	return path, nil
}

// Redo re-applies the most recently undone artifact.
func (s *Session) Redo(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.history.Redo()
	if err != nil {
		return "", err
	}
	s.refreshCurrentLocked(ctx)
	s.journalLocked(ctx, history.EntryRedo, "", path, "")
	s.logger.Info("redo", "current", filepath.Base(path))
	return path, nil
}

// Export copies the current artifact to destPath and writes the cut sheet
// and JSON edit log next to it. Returns the exported artifact path.
func (s *Session) Export(ctx context.Context, destPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.history.Loaded() {
		return "", ErrNoVideoLoaded
	}
	if err := export.ValidateDestDir(filepath.Dir(destPath)); err != nil {
		return "", err
	}

	current := s.history.CurrentPath()
	if err := export.CopyArtifact(current, destPath); err != nil {
		return "", err
	}

	entries := s.entriesLocked(ctx)
	sheet := export.GenerateCutSheet(filepath.Base(s.history.OriginalPath()), entries)
	sheetPath := destPath[:len(destPath)-len(filepath.Ext(destPath))] + ".cutsheet.txt"
	if err := os.WriteFile(sheetPath, []byte(sheet), 0o644); err != nil {
		s.logger.Warn("writing cut sheet", "error", err)
	}

	if _, err := export.WriteLog(destPath, export.Log{
		SessionID:    s.journalID,
		OriginalPath: s.history.OriginalPath(),
		EditCount:    s.history.EditCount(),
		Chain:        s.history.Chain(),
		Entries:      entries,
	}); err != nil {
		s.logger.Warn("writing edit log", "error", err)
	}

	s.journalLocked(ctx, history.EntryExport, "", destPath, "")
	s.logger.Info("exported", "dest", destPath, "edits", s.history.EditCount())
	return destPath, nil
}

// Status returns a snapshot for UI/API rendering.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Loaded:       s.history.Loaded(),
		OriginalPath: s.history.OriginalPath(),
		CurrentPath:  s.history.CurrentPath(),
		EditCount:    s.history.EditCount(),
		CanUndo:      s.history.CanUndo(),
		CanRedo:      s.history.CanRedo(),
		DurationSec:  s.history.Duration(),
		Playing:      s.preview.Playing(),
		PositionSec:  s.preview.Position(),
		SessionID:    s.journalID,
	}
}

// Preview exposes the playback engine for API control endpoints. Playback
// control does not contend for the session mutex.
func (s *Session) Preview() *preview.Engine {
	return s.preview
}

// CurrentPath returns the chain's current artifact path.
func (s *Session) CurrentPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CurrentPath()
}

// Close releases the preview and closes the journal. The working directory
// is advisory scratch space; RemoveArtifacts deletes it wholesale.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preview.Release()
	s.closeJournalLocked(ctx, history.SessionStatusClosed)
	s.history.Reset()
}

// RemoveArtifacts deletes the session working directory. Safe to call after
// Close; intermediate artifacts are never needed across sessions.
func (s *Session) RemoveArtifacts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.Loaded() {
		return errors.New("session still active")
	}
	return os.RemoveAll(s.editsDir)
}

// refreshCurrentLocked reloads the preview onto the chain's current artifact
// and re-measures its duration. Preview failures are reported but do not
// undo the history change.
func (s *Session) refreshCurrentLocked(ctx context.Context) {
	current := s.history.CurrentPath()

	s.preview.Release()
	if err := s.preview.Load(ctx, current); err != nil {
		s.logger.Warn("preview reload failed", "path", current, "error", err)
	}

	if probe, err := s.backend.Probe(ctx, current); err == nil {
		s.history.SetDuration(probe.Duration)
	} else {
		s.logger.Warn("duration probe failed", "path", current, "error", err)
	}
}

// Journal writes are best effort: a failed insert is logged and the edit
// proceeds.
func (s *Session) openJournalLocked(ctx context.Context, originalPath string) {
	if s.repo == nil {
		return
	}
	sess := &history.Session{
		ID:           history.NewID(),
		OriginalPath: originalPath,
		WorkingDir:   s.editsDir,
		Status:       history.SessionStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		s.logger.Warn("journal session create failed", "error", err)
		return
	}
	s.journalID = sess.ID
	s.journalSeq = 0
}

func (s *Session) closeJournalLocked(ctx context.Context, status string) {
	if s.repo == nil || s.journalID == "" {
		return
	}
	if err := s.repo.CloseSession(ctx, s.journalID, status); err != nil {
		s.logger.Warn("journal session close failed", "error", err)
	}
	s.journalID = ""
}

func (s *Session) journalLocked(ctx context.Context, kind, action, artifactPath, paramsJSON string) {
	if s.repo == nil || s.journalID == "" {
		return
	}
	s.journalSeq++
	e := &history.Entry{
		ID:           history.NewID(),
		SessionID:    s.journalID,
		Seq:          s.journalSeq,
		Kind:         kind,
		Action:       action,
		ArtifactPath: artifactPath,
		ParamsJSON:   paramsJSON,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.AppendEntry(ctx, e); err != nil {
		s.logger.Warn("journal append failed", "kind", kind, "error", err)
	}
}

func (s *Session) entriesLocked(ctx context.Context) []history.Entry {
	if s.repo == nil || s.journalID == "" {
		return nil
	}
	ptrs, err := s.repo.ListEntries(ctx, s.journalID)
	if err != nil {
		s.logger.Warn("journal read failed", "error", err)
		return nil
	}
	entries := make([]history.Entry, 0, len(ptrs))
	for _, e := range ptrs {
		entries = append(entries, *e)
	}
	return entries
}

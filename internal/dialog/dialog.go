// Package dialog abstracts user file selection. The agent runs headless or
// behind a remote UI, so "ask the user for a file" is a pluggable port: the
// API surface supplies selections inline, and the stub stands in wherever no
// interactive frontend is attached.
package dialog

import (
	"log/slog"
	"sync"
)

// FileKind tells the frontend what sort of file is being requested so it can
// present sensible filters.
type FileKind string

const (
	KindVideo FileKind = "video"
	KindAudio FileKind = "audio"
	KindImage FileKind = "image"
)

// Selector asks the user to pick a file. An empty returned path means the
// user cancelled; cancellation is not an error.
type Selector interface {
	AskOpen(kind FileKind, prompt string) (string, error)
	AskSave(defaultName string) (string, error)
}

// StubSelector always reports cancellation. It keeps the agent functional
// when no frontend capable of showing a file picker is attached.
type StubSelector struct {
	logger *slog.Logger
}

func NewStubSelector(logger *slog.Logger) *StubSelector {
	return &StubSelector{logger: logger}
}

func (s *StubSelector) AskOpen(kind FileKind, prompt string) (string, error) {
	if s.logger != nil {
		s.logger.Debug("no file picker attached, treating as cancelled", "kind", string(kind), "prompt", prompt)
	}
	return "", nil
}

func (s *StubSelector) AskSave(defaultName string) (string, error) {
	if s.logger != nil {
		s.logger.Debug("no file picker attached, treating as cancelled", "default_name", defaultName)
	}
	return "", nil
}

// ScriptedSelector replays a fixed sequence of selections. Once the queue is
// exhausted it cancels. Safe for concurrent use.
type ScriptedSelector struct {
	mu    sync.Mutex
	queue []string
}

func NewScriptedSelector(paths ...string) *ScriptedSelector {
	return &ScriptedSelector{queue: paths}
}

func (s *ScriptedSelector) AskOpen(kind FileKind, prompt string) (string, error) {
	return s.next(), nil
}

func (s *ScriptedSelector) AskSave(defaultName string) (string, error) {
	return s.next(), nil
}

func (s *ScriptedSelector) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return ""
	}
	path := s.queue[0]
	s.queue = s.queue[1:]
	return path
}

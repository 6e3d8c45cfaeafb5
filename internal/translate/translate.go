// Package translate turns free-form edit commands into structured edit
// requests. The real implementation calls a remote translation service; the
// stub handles the offline case by recognizing nothing.
package translate

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnrecognized indicates the command could not be mapped to any known
// action.
var ErrUnrecognized = errors.New("command not recognized")

// Result is a structured edit request produced from a free-form command.
type Result struct {
	Action  string         `json:"action"`
	Params  map[string]any `json:"parameters"`
	Message string         `json:"message,omitempty"`
}

// Translator converts a natural-language command into an edit request.
type Translator interface {
	Translate(ctx context.Context, command string) (*Result, error)
}

// StubTranslator recognizes nothing. It keeps the agent functional when no
// translation service is configured; callers fall back to structured
// requests.
type StubTranslator struct {
	logger *slog.Logger
}

func NewStubTranslator(logger *slog.Logger) *StubTranslator {
	return &StubTranslator{logger: logger}
}

func (s *StubTranslator) Translate(ctx context.Context, command string) (*Result, error) {
	if s.logger != nil {
		s.logger.Debug("translator stub: no service configured", "command_len", len(command))
	}
	return nil, ErrUnrecognized
}

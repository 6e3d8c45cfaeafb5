package history

import (
	"errors"
	"fmt"
	"testing"
)

func TestManager_SetOriginalResetsState(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.CommitEdit("/v/b.mp4")
	m.SetDuration(9.5)
	if _, err := m.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	m.SetOriginal("/v/c.mp4")

	if got := m.Chain(); len(got) != 1 || got[0] != "/v/c.mp4" {
		t.Errorf("Chain() = %v, want [/v/c.mp4]", got)
	}
	if m.EditCount() != 0 {
		t.Errorf("EditCount() = %d, want 0", m.EditCount())
	}
	if m.CanRedo() {
		t.Error("CanRedo() = true after SetOriginal")
	}
	if m.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 (unknown)", m.Duration())
	}
}

func TestManager_CommitMaintainsChainInvariant(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")

	for i := 1; i <= 5; i++ {
		m.CommitEdit(fmt.Sprintf("/v/edit_%d.mp4", i))
		if len(m.Chain()) != m.EditCount()+1 {
			t.Fatalf("after %d commits: len(chain) = %d, editCount = %d", i, len(m.Chain()), m.EditCount())
		}
		if !m.CanUndo() {
			t.Fatalf("CanUndo() = false after commit %d", i)
		}
	}
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.CommitEdit("/v/b.mp4")
	m.CommitEdit("/v/c.mp4")

	before := m.CurrentPath()

	p, err := m.Undo()
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if p != "/v/b.mp4" || m.CurrentPath() != "/v/b.mp4" {
		t.Errorf("Undo() = %q, current = %q, want /v/b.mp4", p, m.CurrentPath())
	}

	p, err = m.Redo()
	if err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if p != before || m.CurrentPath() != before {
		t.Errorf("Redo() = %q, want %q", p, before)
	}
}

func TestManager_UndoOrderAcrossMultipleSteps(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.CommitEdit("/v/b.mp4")
	m.CommitEdit("/v/c.mp4")

	m.Undo()
	m.Undo()

	if m.CurrentPath() != "/v/a.mp4" {
		t.Fatalf("current = %q, want original", m.CurrentPath())
	}
	if got := m.RedoBuffer(); len(got) != 2 || got[0] != "/v/b.mp4" || got[1] != "/v/c.mp4" {
		t.Errorf("RedoBuffer() = %v, want [b, c] oldest-undone-last", got)
	}

	// Redo must replay in forward order.
	p, _ := m.Redo()
	if p != "/v/b.mp4" {
		t.Errorf("first Redo() = %q, want /v/b.mp4", p)
	}
	p, _ = m.Redo()
	if p != "/v/c.mp4" {
		t.Errorf("second Redo() = %q, want /v/c.mp4", p)
	}
}

func TestManager_CommitClearsRedoBuffer(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.CommitEdit("/v/b.mp4")
	m.Undo()

	if !m.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}

	m.CommitEdit("/v/d.mp4")

	if m.CanRedo() {
		t.Error("CanRedo() = true after new commit; redo buffer must be cleared")
	}
	if len(m.RedoBuffer()) != 0 {
		t.Errorf("RedoBuffer() = %v, want empty", m.RedoBuffer())
	}
}

func TestManager_UndoRedoErrors(t *testing.T) {
	m := NewManager()

	if _, err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() on empty manager err = %v, want ErrNothingToUndo", err)
	}
	if _, err := m.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo() on empty manager err = %v, want ErrNothingToRedo", err)
	}

	m.SetOriginal("/v/a.mp4")
	if _, err := m.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() with only original err = %v, want ErrNothingToUndo", err)
	}
}

func TestManager_DurationInvalidation(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.SetDuration(12.0)

	m.CommitEdit("/v/b.mp4")
	if m.Duration() != 0 {
		t.Error("commit should invalidate cached duration")
	}

	m.SetDuration(8.0)
	m.Undo()
	if m.Duration() != 0 {
		t.Error("undo should invalidate cached duration")
	}

	m.SetDuration(12.0)
	m.Redo()
	if m.Duration() != 0 {
		t.Error("redo should invalidate cached duration")
	}
}

func TestManager_ResetUnloads(t *testing.T) {
	m := NewManager()
	m.SetOriginal("/v/a.mp4")
	m.CommitEdit("/v/b.mp4")

	m.Reset()

	if m.Loaded() {
		t.Error("Loaded() = true after Reset")
	}
	if m.CurrentPath() != "" || m.OriginalPath() != "" {
		t.Errorf("paths not cleared: current=%q original=%q", m.CurrentPath(), m.OriginalPath())
	}
}

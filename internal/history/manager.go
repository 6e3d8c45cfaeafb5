// Package history tracks the versioned chain of edit artifacts for a single
// editing session: the original source, every committed edit, the undo/redo
// buffers, and the cached duration of the current artifact.
//
// The Manager is in-memory and synchronous. It must only be used from the
// session's control goroutine; it provides no internal locking.
package history

import "errors"

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Manager owns the artifact chain and redo buffer. Index 0 of the chain is
// always the original; the last element is the current artifact.
type Manager struct {
	original  string
	chain     []string
	redo      []string
	editCount int
	duration  float64 // seconds; 0 means unknown / not yet measured
}

func NewManager() *Manager {
	return &Manager{}
}

// SetOriginal replaces the original and the whole chain with [path], clears
// the redo buffer, and resets the edit counter and cached duration.
func (m *Manager) SetOriginal(path string) {
	m.original = path
	m.chain = []string{path}
	m.redo = nil
	m.editCount = 0
	m.duration = 0
}

// Reset clears all state, returning the manager to its unloaded condition.
func (m *Manager) Reset() {
	m.original = ""
	m.chain = nil
	m.redo = nil
	m.editCount = 0
	m.duration = 0
}

// Loaded reports whether an original has been set.
func (m *Manager) Loaded() bool {
	return len(m.chain) > 0
}

// CommitEdit appends a freshly produced artifact to the chain. Any redo
// state is discarded and the cached duration invalidated. The caller is
// responsible for ensuring an original is already set.
func (m *Manager) CommitEdit(path string) {
	m.chain = append(m.chain, path)
	m.editCount++
	m.redo = nil
	m.duration = 0
}

func (m *Manager) CanUndo() bool {
	return len(m.chain) > 1
}

func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}

// Undo pops the chain tail into the front of the redo buffer and returns the
// new current artifact.
func (m *Manager) Undo() (string, error) {
	if !m.CanUndo() {
		return "", ErrNothingToUndo
	}
	last := m.chain[len(m.chain)-1]
	m.chain = m.chain[:len(m.chain)-1]
	m.redo = append([]string{last}, m.redo...)
	m.duration = 0
	return m.chain[len(m.chain)-1], nil
}

// Redo pops the redo-buffer head back onto the chain and returns it.
func (m *Manager) Redo() (string, error) {
	if !m.CanRedo() {
		return "", ErrNothingToRedo
	}
	next := m.redo[0]
	m.redo = m.redo[1:]
	m.chain = append(m.chain, next)
	m.duration = 0
	return next, nil
}

// CurrentPath returns the artifact at the chain's current position, or ""
// when nothing is loaded.
func (m *Manager) CurrentPath() string {
	if len(m.chain) == 0 {
		return ""
	}
	return m.chain[len(m.chain)-1]
}

func (m *Manager) OriginalPath() string {
	return m.original
}

// EditCount returns the number of edits committed since the original was
// set. It only ever grows; undo does not decrement it, since it feeds the
// versioned output-filename scheme.
func (m *Manager) EditCount() int {
	return m.editCount
}

// Duration returns the cached duration of the current artifact in seconds,
// or 0 when unknown.
func (m *Manager) Duration() float64 {
	return m.duration
}

func (m *Manager) SetDuration(seconds float64) {
	m.duration = seconds
}

// Chain returns a copy of the undo chain, oldest first.
func (m *Manager) Chain() []string {
	out := make([]string, len(m.chain))
	copy(out, m.chain)
	return out
}

// RedoBuffer returns a copy of the redo buffer, next-to-redo first.
func (m *Manager) RedoBuffer() []string {
	out := make([]string, len(m.redo))
	copy(out, m.redo)
	return out
}

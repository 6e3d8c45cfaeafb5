// Package watcher observes the session working directory so artifact churn
// (new versions, deleted scratch files) shows up in the logs and can drive
// UI refreshes. Polling keeps it dependency-free and portable across the
// filesystems external drives use.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	}
	return "unknown"
}

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

// PollWatcher scans a directory on an interval and diffs modification times.
type PollWatcher struct {
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	callback func(path string, event EventType)
	cancel   context.CancelFunc
	done     chan struct{}
	seen     map[string]time.Time
}

func NewPollWatcher(interval time.Duration, logger *slog.Logger) *PollWatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PollWatcher{logger: logger, interval: interval}
}

func (w *PollWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Watch starts polling path until the context is cancelled or Stop is
// called. The directory may not exist yet; it is treated as empty until it
// appears.
func (w *PollWatcher) Watch(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		cancel()
		return nil
	}
	w.cancel = cancel
	w.done = make(chan struct{})
	w.seen = map[string]time.Time{}
	done := w.done
	w.mu.Unlock()

	w.logger.Info("watching directory", "path", path, "interval", w.interval.String())

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.scan(path)
			}
		}
	}()
	return nil
}

func (w *PollWatcher) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	w.logger.Info("watcher stopped")
	return nil
}

func (w *PollWatcher) scan(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Directory is created lazily; absence is not an error.
		entries = nil
	}

	current := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		current[filepath.Join(dir, e.Name())] = info.ModTime()
	}

	w.mu.Lock()
	previous := w.seen
	w.seen = current
	callback := w.callback
	w.mu.Unlock()

	if callback == nil {
		return
	}

	for path, mtime := range current {
		prev, ok := previous[path]
		switch {
		case !ok:
			callback(path, EventCreate)
		case !mtime.Equal(prev):
			callback(path, EventModify)
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			callback(path, EventDelete)
		}
	}
}

// Package preview owns the playback session for the current artifact: static
// frame extraction for scrubbing and a single background loop that decodes
// and delivers frames at the source frame rate.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelcut/reelcut-agent/internal/media"
)

var (
	// ErrNotLoaded indicates an operation that requires an open source.
	ErrNotLoaded = errors.New("no source loaded")

	// ErrNoFrame indicates no frame could be decoded at the requested
	// position, typically past end-of-stream.
	ErrNoFrame = errors.New("no frame available")
)

// Observer receives playback notifications. Frame and time notifications for
// one playback run arrive in strictly increasing timestamp order; Stopped is
// delivered exactly once per Play, after the last frame of that run.
// Callbacks run on the playback goroutine and must return promptly.
type Observer interface {
	FrameReady(frame image.Image, sec float64)
	TimeChanged(sec, total float64)
	PlaybackStopped()
}

// loopJoinTimeout bounds how long control calls wait for the playback loop
// to observe the pause flag. One loop iteration is at most one decode plus
// one frame interval.
const loopJoinTimeout = 2 * time.Second

// Engine drives preview playback for one source at a time. The decode
// handle is exclusively owned here: the playback loop and control calls
// never touch it concurrently. Control methods are expected to be called
// from a single goroutine; they are additionally serialized by a mutex so a
// late caller cannot corrupt state.
type Engine struct {
	decoder media.Decoder
	opts    media.Options
	logger  *slog.Logger

	mu       sync.Mutex
	clip     media.Clip
	path     string
	fps      float64
	duration float64
	observer Observer

	playing  atomic.Bool
	pauseReq atomic.Bool
	loopDone chan struct{}
}

func NewEngine(decoder media.Decoder, opts media.Options, logger *slog.Logger) *Engine {
	return &Engine{decoder: decoder, opts: opts, logger: logger}
}

// SetObserver installs the notification sink. Must be called before Play.
func (e *Engine) SetObserver(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = obs
}

// Load opens a source, releasing any previous one first. It validates
// readability with one throwaway decode and leaves the cursor at 0. On
// failure the engine is left unloaded.
func (e *Engine) Load(ctx context.Context, path string) error {
	e.Release()

	e.mu.Lock()
	defer e.mu.Unlock()

	clip, err := e.decoder.Open(ctx, path, e.opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := clip.ReadFrame(); err != nil {
		clip.Close()
		return fmt.Errorf("source is not decodable: %w", err)
	}
	if _, err := clip.Seek(0); err != nil {
		clip.Close()
		return fmt.Errorf("rewind after validation: %w", err)
	}

	fps := clip.FPS()
	if fps <= 0 {
		fps = media.DefaultFrameRate
		e.logger.Warn("source reports no frame rate, using default", "path", path, "fps", fps)
	}

	e.clip = clip
	e.path = path
	e.fps = fps
	e.duration = clip.Duration()

	e.logger.Info("preview source loaded", "path", path, "fps", fps, "duration_sec", e.duration)
	return nil
}

// Loaded reports whether a source is open.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clip != nil
}

// Playing reports whether the playback loop is running.
func (e *Engine) Playing() bool {
	return e.playing.Load()
}

// FPS returns the effective frame rate of the loaded source.
func (e *Engine) FPS() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fps
}

// Duration returns the loaded source's duration in seconds, 0 if unknown.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Position returns the decode cursor in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return 0
	}
	return e.clip.Position()
}

// StaticFrame decodes exactly one frame at the clamped timestamp. Playback
// must be paused first; the decode cursor moves but no other state changes.
func (e *Engine) StaticFrame(sec float64) (image.Image, error) {
	if e.playing.Load() {
		return nil, errors.New("pause playback before requesting a static frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return nil, ErrNotLoaded
	}

	sec = e.clamp(sec)
	if _, err := e.clip.Seek(sec); err != nil {
		return nil, fmt.Errorf("seek to %.3fs: %w", sec, err)
	}
	frame, err := e.clip.ReadFrame()
	if err != nil {
		return nil, ErrNoFrame
	}
	return frame, nil
}

// Play starts the background playback loop from the given position; a
// negative position resumes at the current cursor. No-op when already
// playing or unloaded.
func (e *Engine) Play(from float64) {
	if e.playing.Swap(true) {
		return
	}

	e.mu.Lock()
	if e.clip == nil {
		e.mu.Unlock()
		e.playing.Store(false)
		return
	}
	if from >= 0 {
		e.clip.Seek(e.clamp(from))
	}
	clip := e.clip
	fps := e.fps
	total := e.duration
	obs := e.observer
	done := make(chan struct{})
	e.loopDone = done
	e.mu.Unlock()

	e.pauseReq.Store(false)
	e.logger.Info("playback started", "from_sec", from)

	go e.loop(clip, fps, total, obs, done)
}

// Pause signals the loop to stop after its current iteration. Idempotent.
func (e *Engine) Pause() {
	e.pauseReq.Store(true)
}

// Stop pauses playback, waits for the loop to exit, and rewinds to 0.
func (e *Engine) Stop() {
	e.Pause()
	e.waitForLoop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip != nil {
		e.clip.Seek(0)
	}
}

// Seek pauses any running playback, waits for the loop to exit, then
// repositions the decode cursor and returns the clamped position. The loop
// join guarantees the decode handle is never mutated mid-ReadFrame.
func (e *Engine) Seek(sec float64) (float64, error) {
	e.Pause()
	e.waitForLoop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return 0, ErrNotLoaded
	}
	return e.clip.Seek(e.clamp(sec))
}

// Release stops playback and closes the decode handle. Idempotent and safe
// to call on an unloaded engine.
func (e *Engine) Release() {
	e.Pause()
	e.waitForLoop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return
	}
	if err := e.clip.Close(); err != nil {
		e.logger.Warn("closing decode handle", "path", e.path, "error", err)
	}
	e.clip = nil
	e.path = ""
	e.fps = 0
	e.duration = 0
	e.logger.Info("preview source released")
}

// loop decodes frames until pause is requested or the stream ends. Exactly
// one stopped notification is delivered per run, after the last frame.
func (e *Engine) loop(clip media.Clip, fps, total float64, obs Observer, done chan struct{}) {
	defer func() {
		e.playing.Store(false)
		if obs != nil {
			obs.PlaybackStopped()
		}
		close(done)
	}()

	interval := time.Duration(float64(time.Second) / fps)

	for {
		if e.pauseReq.Load() {
			e.logger.Debug("playback loop observed pause")
			return
		}

		start := time.Now()

		frame, err := clip.ReadFrame()
		if err != nil {
			// End-of-stream and decode failures both end the run.
			e.logger.Debug("playback loop ended", "reason", err)
			return
		}

		pos := clip.Position()
		if obs != nil {
			obs.FrameReady(frame, pos)
			obs.TimeChanged(pos, total)
		}

		if sleep := interval - time.Since(start); sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func (e *Engine) waitForLoop() {
	e.mu.Lock()
	done := e.loopDone
	e.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(loopJoinTimeout):
		e.logger.Warn("playback loop did not stop in time")
	}
}

func (e *Engine) clamp(sec float64) float64 {
	if sec < 0 {
		return 0
	}
	if e.duration > 0 && sec > e.duration {
		return e.duration
	}
	return sec
}

package preview

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/media"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClip serves a fixed number of synthetic frames.
type fakeClip struct {
	mu     sync.Mutex
	frames int
	fps    float64
	cursor int
	closed bool
}

func (c *fakeClip) ReadFrame() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("clip closed")
	}
	if c.cursor >= c.frames {
		return nil, io.EOF
	}
	c.cursor++
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (c *fakeClip) Seek(sec float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame := int(math.Round(sec * c.fps))
	if frame < 0 {
		frame = 0
	}
	if frame > c.frames {
		frame = c.frames
	}
	c.cursor = frame
	return float64(frame) / c.fps, nil
}

func (c *fakeClip) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.cursor) / c.fps
}

func (c *fakeClip) FPS() float64 { return c.fps }

func (c *fakeClip) Duration() float64 { return float64(c.frames) / c.fps }

func (c *fakeClip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeDecoder struct {
	frames  int
	fps     float64
	openErr error
	last    *fakeClip
}

func (d *fakeDecoder) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	return &media.ProbeResult{Duration: float64(d.frames) / d.fps, FrameRate: d.fps}, nil
}

func (d *fakeDecoder) Open(ctx context.Context, path string, opts media.Options) (media.Clip, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.last = &fakeClip{frames: d.frames, fps: d.fps}
	return d.last, nil
}

// recorder collects observer notifications; safe for use from the playback
// goroutine.
type recorder struct {
	mu      sync.Mutex
	times   []float64
	stopped int
	done    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 4)}
}

func (r *recorder) FrameReady(frame image.Image, sec float64) {}

func (r *recorder) TimeChanged(sec, total float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, sec)
}

func (r *recorder) PlaybackStopped() {
	r.mu.Lock()
	r.stopped++
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for playback to stop")
	}
}

func (r *recorder) snapshot() ([]float64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.times...), r.stopped
}

func newTestEngine(t *testing.T, dec *fakeDecoder) (*Engine, *recorder) {
	t.Helper()
	e := NewEngine(dec, media.Options{TargetWidth: 640, TargetHeight: 480}, testLogger())
	rec := newRecorder()
	e.SetObserver(rec)
	return e, rec
}

func TestLoadResetsCursor(t *testing.T) {
	dec := &fakeDecoder{frames: 10, fps: 10}
	e, _ := newTestEngine(t, dec)

	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !e.Loaded() {
		t.Error("engine should be loaded")
	}
	if pos := e.Position(); pos != 0 {
		t.Errorf("position after load = %v, want 0", pos)
	}
	if e.Duration() != 1.0 {
		t.Errorf("duration = %v, want 1.0", e.Duration())
	}
}

func TestLoadFailureLeavesUnloaded(t *testing.T) {
	dec := &fakeDecoder{openErr: errors.New("no such file")}
	e, _ := newTestEngine(t, dec)

	if err := e.Load(context.Background(), "missing.mp4"); err == nil {
		t.Fatal("expected load error")
	}
	if e.Loaded() {
		t.Error("engine must stay unloaded after a failed load")
	}
}

func TestLoadUndecodableSourceClosesClip(t *testing.T) {
	dec := &fakeDecoder{frames: 0, fps: 10}
	e, _ := newTestEngine(t, dec)

	if err := e.Load(context.Background(), "empty.mp4"); err == nil {
		t.Fatal("expected validation failure for a source with no frames")
	}
	if e.Loaded() {
		t.Error("engine must stay unloaded")
	}
	if dec.last == nil || !dec.last.closed {
		t.Error("decode handle must be closed after failed validation")
	}
}

func TestFPSFallback(t *testing.T) {
	dec := &fakeDecoder{frames: 5, fps: 0}
	e, _ := newTestEngine(t, dec)

	// fps 0 breaks the fake clip's arithmetic for Seek; only the throwaway
	// read matters here, so a single frame is enough.
	dec.frames = 1
	dec.fps = 0

	err := e.Load(context.Background(), "odd.mp4")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e.FPS() != media.DefaultFrameRate {
		t.Errorf("fps = %v, want default %v", e.FPS(), media.DefaultFrameRate)
	}
}

func TestStaticFrame(t *testing.T) {
	dec := &fakeDecoder{frames: 10, fps: 10}
	e, _ := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	frame, err := e.StaticFrame(0.5)
	if err != nil {
		t.Fatalf("static frame: %v", err)
	}
	if frame == nil {
		t.Fatal("expected a frame")
	}
}

func TestStaticFrameBeyondDurationReturnsNoFrame(t *testing.T) {
	dec := &fakeDecoder{frames: 10, fps: 10}
	e, _ := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	// 99s clamps to the 1s duration, which is past the last frame.
	_, err := e.StaticFrame(99)
	if !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
}

func TestStaticFrameUnloaded(t *testing.T) {
	e, _ := newTestEngine(t, &fakeDecoder{frames: 1, fps: 10})
	if _, err := e.StaticFrame(0); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
}

func TestPlayDeliversMonotonicTimestampsThenStopsOnce(t *testing.T) {
	dec := &fakeDecoder{frames: 5, fps: 1000}
	e, rec := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	e.Play(0)
	rec.waitStopped(t)

	times, stopped := rec.snapshot()
	if len(times) != 5 {
		t.Errorf("got %d time notifications, want 5", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Errorf("timestamps not strictly increasing: %v", times)
		}
	}
	if stopped != 1 {
		t.Errorf("stopped notifications = %d, want exactly 1", stopped)
	}
	if e.Playing() {
		t.Error("engine should no longer be playing")
	}
}

func TestPlayUnloadedIsNoop(t *testing.T) {
	e, rec := newTestEngine(t, &fakeDecoder{frames: 1, fps: 10})
	e.Play(0)
	time.Sleep(20 * time.Millisecond)
	times, stopped := rec.snapshot()
	if len(times) != 0 || stopped != 0 {
		t.Errorf("unloaded play must emit nothing, got %d frames %d stops", len(times), stopped)
	}
	if e.Playing() {
		t.Error("engine must not report playing")
	}
}

func TestPauseThenResumeContinuesForward(t *testing.T) {
	dec := &fakeDecoder{frames: 2000, fps: 1000}
	e, rec := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	e.Play(0)
	time.Sleep(30 * time.Millisecond)
	e.Pause()
	rec.waitStopped(t)

	firstRun, stopped := rec.snapshot()
	if len(firstRun) == 0 {
		t.Fatal("expected some frames before pause")
	}
	if stopped != 1 {
		t.Fatalf("stopped = %d after pause, want 1", stopped)
	}

	// Resume from the cursor.
	e.Play(-1)
	time.Sleep(30 * time.Millisecond)
	e.Pause()
	rec.waitStopped(t)

	all, stopped := rec.snapshot()
	if stopped != 2 {
		t.Errorf("stopped = %d after two runs, want 2", stopped)
	}
	if len(all) <= len(firstRun) {
		t.Fatal("expected more frames after resume")
	}
	if all[len(firstRun)] <= firstRun[len(firstRun)-1] {
		t.Errorf("resume did not continue forward: %v then %v", firstRun[len(firstRun)-1], all[len(firstRun)])
	}
}

func TestPlayWhilePlayingIsNoop(t *testing.T) {
	dec := &fakeDecoder{frames: 100000, fps: 20}
	e, rec := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	e.Play(0)
	e.Play(0) // second call must not start another loop
	time.Sleep(60 * time.Millisecond)
	e.Pause()
	rec.waitStopped(t)

	_, stopped := rec.snapshot()
	if stopped != 1 {
		t.Errorf("stopped = %d, want 1 (a single loop)", stopped)
	}
}

func TestStopRewindsToZero(t *testing.T) {
	dec := &fakeDecoder{frames: 100, fps: 10}
	e, _ := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Seek(5); err != nil {
		t.Fatal(err)
	}
	e.Stop()
	if pos := e.Position(); pos != 0 {
		t.Errorf("position after stop = %v, want 0", pos)
	}
}

func TestSeekClamps(t *testing.T) {
	dec := &fakeDecoder{frames: 100, fps: 10}
	e, _ := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	pos, err := e.Seek(-3)
	if err != nil || pos != 0 {
		t.Errorf("seek(-3) = %v, %v; want 0", pos, err)
	}
	pos, err = e.Seek(999)
	if err != nil || pos != 10 {
		t.Errorf("seek(999) = %v, %v; want clamp to duration 10", pos, err)
	}
}

// overlapClip flags any Seek that arrives while a ReadFrame is in flight.
// Production decode handles tear down their stream pipe on Seek, so such an
// overlap would corrupt the reader out from under the playback loop.
type overlapClip struct {
	fakeClip
	inRead  atomic.Bool
	overlap atomic.Bool
}

func (c *overlapClip) ReadFrame() (image.Image, error) {
	c.inRead.Store(true)
	defer c.inRead.Store(false)
	time.Sleep(2 * time.Millisecond)
	return c.fakeClip.ReadFrame()
}

func (c *overlapClip) Seek(sec float64) (float64, error) {
	if c.inRead.Load() {
		c.overlap.Store(true)
	}
	return c.fakeClip.Seek(sec)
}

type overlapDecoder struct{ clip *overlapClip }

func (d *overlapDecoder) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	return &media.ProbeResult{Duration: d.clip.Duration(), FrameRate: d.clip.fps}, nil
}

func (d *overlapDecoder) Open(ctx context.Context, path string, opts media.Options) (media.Clip, error) {
	return d.clip, nil
}

func TestSeekWhilePlayingJoinsLoop(t *testing.T) {
	clip := &overlapClip{fakeClip: fakeClip{frames: 100000, fps: 100}}
	e := NewEngine(&overlapDecoder{clip: clip}, media.Options{}, testLogger())
	rec := newRecorder()
	e.SetObserver(rec)

	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	e.Play(0)
	time.Sleep(10 * time.Millisecond)

	pos, err := e.Seek(10)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	if pos != 10 {
		t.Errorf("seek position = %v, want 10", pos)
	}
	if clip.overlap.Load() {
		t.Fatal("seek mutated the decode handle while the playback loop was mid-read")
	}
	if e.Playing() {
		t.Error("seek must leave playback paused")
	}
	rec.waitStopped(t)
}

func TestReleaseIdempotent(t *testing.T) {
	dec := &fakeDecoder{frames: 10, fps: 10}
	e, _ := newTestEngine(t, dec)

	// Safe on an engine that never loaded.
	e.Release()

	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}
	e.Release()
	e.Release()

	if e.Loaded() {
		t.Error("engine must be unloaded after release")
	}
	if !dec.last.closed {
		t.Error("decode handle must be closed")
	}
}

func TestReleaseWhilePlayingStopsLoop(t *testing.T) {
	dec := &fakeDecoder{frames: 100000, fps: 50}
	e, rec := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}

	e.Play(0)
	time.Sleep(30 * time.Millisecond)
	e.Release()

	rec.waitStopped(t)
	if e.Playing() {
		t.Error("playback must have stopped")
	}
	if !dec.last.closed {
		t.Error("decode handle must be closed")
	}
}

func TestLoadReplacesPreviousSource(t *testing.T) {
	dec := &fakeDecoder{frames: 10, fps: 10}
	e, _ := newTestEngine(t, dec)
	if err := e.Load(context.Background(), "a.mp4"); err != nil {
		t.Fatal(err)
	}
	first := dec.last

	if err := e.Load(context.Background(), "b.mp4"); err != nil {
		t.Fatal(err)
	}
	if !first.closed {
		t.Error("previous decode handle must be closed on reload")
	}
	if !e.Loaded() {
		t.Error("engine should have the new source loaded")
	}
}

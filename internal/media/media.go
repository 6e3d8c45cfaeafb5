// Package media abstracts frame decoding and stream probing so the preview
// engine can be exercised without ffmpeg installed. The production
// implementation shells out to ffmpeg/ffprobe.
package media

import (
	"context"
	"fmt"
	"image"
)

// ProbeResult holds the stream metadata the agent cares about.
type ProbeResult struct {
	Duration  float64 // seconds; 0 means unknown
	FrameRate float64
	Width     int
	Height    int
	Codec     string
}

// Options configures how frames are decoded.
type Options struct {
	// Target frame size; decoded frames are scaled to fit inside this box
	// preserving aspect ratio. Zero means no scaling.
	TargetWidth  int
	TargetHeight int
}

// Decoder opens media files for frame extraction.
type Decoder interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
	Open(ctx context.Context, path string, opts Options) (Clip, error)
}

// Clip is one open decode handle. It maintains a single decode cursor: each
// ReadFrame advances it by one frame, Seek repositions it. A Clip must only
// be used by one goroutine at a time; the preview engine enforces this.
type Clip interface {
	// ReadFrame decodes the next frame at the cursor. Returns io.EOF at
	// end-of-stream.
	ReadFrame() (image.Image, error)

	// Seek repositions the cursor and returns the clamped position.
	Seek(sec float64) (float64, error)

	// Position returns the cursor position in seconds.
	Position() float64

	FPS() float64
	Duration() float64
	Close() error
}

// FormatTimecode renders seconds as MM:SS, or HH:MM:SS for durations of an
// hour or more. Negative values render as 00:00.
func FormatTimecode(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Package backend performs the per-operation media transformations. Each
// supported action maps to one entry point; the production implementation
// shells out to ffmpeg. Inputs are never mutated: every call writes exactly
// one new output file.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelcut/reelcut-agent/internal/media"
	"github.com/reelcut/reelcut-agent/internal/placement"
)

var (
	// ErrMissingFile indicates an input file (video, music, image) does not
	// exist.
	ErrMissingFile = errors.New("input file not found")

	// ErrInvalidParameter indicates a parameter failed validation before or
	// during the transformation.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ProcessError is a transformation failure reported by the media tool
// itself, carrying enough detail to render a user-facing message.
type ProcessError struct {
	Action     string
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s failed: ffmpeg exited %d: %s", e.Action, e.ExitCode, e.StderrTail)
}

// TextParams configures the add_text operation.
type TextParams struct {
	Text        string
	FontSize    int
	Color       string
	Position    placement.Position
	Font        string
	StrokeColor string
	StrokeWidth float64
	Start       float64
	Duration    float64 // <= 0 means until the end of the video
}

// MusicParams configures the add_background_music operation.
type MusicParams struct {
	VolumeFactor float64
	StartInVideo float64
	Loop         bool
}

// OverlayParams configures add_image_overlay and picture_in_picture.
type OverlayParams struct {
	Position   placement.Position
	SizeFactor float64 // fraction of the main frame; <= 0 selects a default
	Opacity    float64 // image overlays only
	Start      float64
	Duration   float64 // <= 0 means until the end of the video
}

// Backend is the external media-transformation engine, one entry point per
// action. Implementations must not mutate any input path.
type Backend interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)

	Trim(ctx context.Context, in, out string, start, end float64) error
	ChangeSpeed(ctx context.Context, in, out string, factor float64) error
	AddText(ctx context.Context, in, out string, p TextParams) error
	MuteAudio(ctx context.Context, in, out string) error
	ExtractAudio(ctx context.Context, in, audioOut string) error
	BlackAndWhite(ctx context.Context, in, out string) error
	InvertColors(ctx context.Context, in, out string) error
	GammaCorrect(ctx context.Context, in, out string, gamma float64) error
	AdjustVolume(ctx context.Context, in, out string, factor float64) error
	Rotate(ctx context.Context, in, out string, angle float64) error
	FadeIn(ctx context.Context, in, out string, duration float64) error
	FadeOut(ctx context.Context, in, out string, duration float64) error
	Mirror(ctx context.Context, in, out string, direction string) error
	NormalizeAudio(ctx context.Context, in, out string) error
	AddBackgroundMusic(ctx context.Context, in, out, musicPath string, p MusicParams) error
	AddImageOverlay(ctx context.Context, in, out, imagePath string, p OverlayParams) error
	PictureInPicture(ctx context.Context, in, out, overlayVideo string, p OverlayParams) error
	Blur(ctx context.Context, in, out string, radius int) error
	Concatenate(ctx context.Context, in string, appendPaths []string, out string) error
}

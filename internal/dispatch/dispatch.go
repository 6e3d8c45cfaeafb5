// Package dispatch maps structured edit requests onto backend
// transformations. Each successful dispatch produces exactly one new
// versioned artifact and registers it with the history manager; failed or
// cancelled requests leave the version chain untouched.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/backend"
	"github.com/reelcut/reelcut-agent/internal/dialog"
	"github.com/reelcut/reelcut-agent/internal/history"
	"github.com/reelcut/reelcut-agent/internal/placement"
)

// Placeholder values a translator emits when the user must pick a file
// interactively.
const (
	SentinelMusicFile  = "USER_SELECTS_MUSIC_FILE"
	SentinelImageFile  = "USER_SELECTS_IMAGE_FILE"
	SentinelPiPVideo   = "USER_SELECTS_PIP_VIDEO_FILE"
	SentinelAppendFile = "USER_SELECTS_VIDEO_FILE_TO_APPEND"
)

var (
	// ErrNoVideoLoaded indicates a dispatch was attempted before any source
	// was loaded.
	ErrNoVideoLoaded = errors.New("no video loaded")

	// ErrInvalidRequest indicates the request itself is malformed, e.g. the
	// translator returned an error shape.
	ErrInvalidRequest = errors.New("invalid edit request")

	// ErrUnknownAction indicates the requested action has no handler.
	ErrUnknownAction = errors.New("unrecognized action")
)

// Request is a structured edit request. Parameter values follow JSON typing:
// numbers arrive as float64, lists as []any.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"parameters"`
}

// Status classifies how a dispatch concluded.
type Status string

const (
	// StatusApplied means a new artifact was produced and committed.
	StatusApplied Status = "applied"

	// StatusCancelled means the user declined a file selection; nothing ran.
	StatusCancelled Status = "cancelled"

	// StatusSideEffect means the action produced an output outside the
	// version chain (audio extraction).
	StatusSideEffect Status = "side_effect"
)

// Outcome reports the result of a successful or cancelled dispatch.
type Outcome struct {
	Status     Status `json:"status"`
	OutputPath string `json:"output_path,omitempty"`
}

// Dispatcher owns the versioned-output naming scheme and the action table.
// It borrows the current artifact path from the history manager and hands
// freshly produced paths back to it.
type Dispatcher struct {
	backend  backend.Backend
	selector dialog.Selector
	history  *history.Manager
	editsDir string
	logger   *slog.Logger
}

func New(b backend.Backend, selector dialog.Selector, h *history.Manager, editsDir string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		backend:  b,
		selector: selector,
		history:  h,
		editsDir: editsDir,
		logger:   logger,
	}
}

// Dispatch applies one edit request. On success the new artifact is already
// committed to history (except for side-effect actions, which never enter
// the chain). A cancelled file selection returns StatusCancelled with a nil
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	if req.Action == "" || req.Action == "error" {
		msg := strParam(req.Params, "message", "command not understood")
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
	}
	if !d.history.Loaded() {
		return nil, ErrNoVideoLoaded
	}

	in := d.history.CurrentPath()

	cancelled, err := d.resolveFileParams(&req)
	if err != nil {
		return nil, err
	}
	if cancelled {
		d.logger.Info("edit cancelled during file selection", "action", req.Action)
		return &Outcome{Status: StatusCancelled}, nil
	}

	if req.Action == "extract_audio" {
		return d.extractAudio(ctx, in)
	}

	apply, ok := d.handlers()[req.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	out, err := d.outputPath(req.Action)
	if err != nil {
		return nil, err
	}

	d.logger.Info("applying edit", "action", req.Action, "input", filepath.Base(in), "output", filepath.Base(out))

	if err := apply(ctx, in, out, req.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Action, err)
	}

	d.history.CommitEdit(out)
	return &Outcome{Status: StatusApplied, OutputPath: out}, nil
}

// outputPath builds the deterministic artifact name under the working
// directory, creating the directory on first use.
func (d *Dispatcher) outputPath(action string) (string, error) {
	if err := os.MkdirAll(d.editsDir, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	orig := d.history.OriginalPath()
	ext := filepath.Ext(orig)
	base := strings.TrimSuffix(filepath.Base(orig), ext)
	name := fmt.Sprintf("%s_edit_%d_%s%s", base, d.history.EditCount()+1, action, ext)
	return filepath.Join(d.editsDir, name), nil
}

// extractAudio writes the current artifact's audio track to a user-chosen
// destination. It is a side effect parallel to editing: the version chain is
// never touched.
func (d *Dispatcher) extractAudio(ctx context.Context, in string) (*Outcome, error) {
	orig := d.history.OriginalPath()
	base := strings.TrimSuffix(filepath.Base(orig), filepath.Ext(orig))

	dest, err := d.selector.AskSave(base + "_audio.mp3")
	if err != nil {
		return nil, fmt.Errorf("file selection: %w", err)
	}
	if dest == "" {
		return &Outcome{Status: StatusCancelled}, nil
	}

	if err := d.backend.ExtractAudio(ctx, in, dest); err != nil {
		return nil, fmt.Errorf("extract_audio: %w", err)
	}
	return &Outcome{Status: StatusSideEffect, OutputPath: dest}, nil
}

// resolveFileParams replaces selection sentinels with user-picked paths.
// Returns cancelled=true as soon as any selection is declined.
func (d *Dispatcher) resolveFileParams(req *Request) (bool, error) {
	ask := func(key string, kind dialog.FileKind, prompt string) (bool, error) {
		v := strParam(req.Params, key, "")
		if !strings.Contains(v, sentinelFor(key)) {
			return false, nil
		}
		path, err := d.selector.AskOpen(kind, prompt)
		if err != nil {
			return false, fmt.Errorf("file selection: %w", err)
		}
		if path == "" {
			return true, nil
		}
		req.Params[key] = path
		return false, nil
	}

	switch req.Action {
	case "add_background_music":
		return ask("music_path", dialog.KindAudio, "Select background music")
	case "add_image_overlay":
		return ask("image_path", dialog.KindImage, "Select overlay image")
	case "picture_in_picture":
		return ask("overlay_video_path", dialog.KindVideo, "Select overlay video")
	case "concatenate":
		paths := listParam(req.Params, "videos_to_append")
		resolved := make([]any, 0, len(paths))
		for i, p := range paths {
			if !strings.Contains(p, SentinelAppendFile) {
				resolved = append(resolved, p)
				continue
			}
			path, err := d.selector.AskOpen(dialog.KindVideo, fmt.Sprintf("Select video %d to append", i+1))
			if err != nil {
				return false, fmt.Errorf("file selection: %w", err)
			}
			if path == "" {
				return true, nil
			}
			resolved = append(resolved, path)
		}
		if req.Params == nil {
			req.Params = map[string]any{}
		}
		req.Params["videos_to_append"] = resolved
	}
	return false, nil
}

func sentinelFor(key string) string {
	switch key {
	case "music_path":
		return SentinelMusicFile
	case "image_path":
		return SentinelImageFile
	case "overlay_video_path":
		return SentinelPiPVideo
	}
	return ""
}

type handlerFunc func(ctx context.Context, in, out string, p map[string]any) error

func (d *Dispatcher) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"trim": func(ctx context.Context, in, out string, p map[string]any) error {
			start, ok := numParamOK(p, "start_time")
			if !ok {
				return fmt.Errorf("%w: start_time is required", backend.ErrInvalidParameter)
			}
			end := numParam(p, "end_time", 0)
			if end > 0 && start >= end {
				return fmt.Errorf("%w: start_time must be less than end_time", backend.ErrInvalidParameter)
			}
			return d.backend.Trim(ctx, in, out, start, end)
		},
		"speed": func(ctx context.Context, in, out string, p map[string]any) error {
			factor, ok := numParamOK(p, "factor")
			if !ok {
				return fmt.Errorf("%w: factor is required", backend.ErrInvalidParameter)
			}
			return d.backend.ChangeSpeed(ctx, in, out, factor)
		},
		"add_text": func(ctx context.Context, in, out string, p map[string]any) error {
			text := strParam(p, "text_content", "")
			if text == "" {
				return fmt.Errorf("%w: text_content is required", backend.ErrInvalidParameter)
			}
			return d.backend.AddText(ctx, in, out, backend.TextParams{
				Text:        text,
				FontSize:    intParam(p, "font_size", 36),
				Color:       strParam(p, "color", "white"),
				Position:    d.position(ctx, in, p["position"], "center"),
				Font:        strParam(p, "font", "Arial"),
				StrokeColor: strParam(p, "stroke_color", "black"),
				StrokeWidth: numParam(p, "stroke_width", 1.5),
				Start:       numParam(p, "start_time", 0),
				Duration:    numParam(p, "duration", 0),
			})
		},
		"mute_audio": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.MuteAudio(ctx, in, out)
		},
		"black_and_white": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.BlackAndWhite(ctx, in, out)
		},
		"invert_colors": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.InvertColors(ctx, in, out)
		},
		"gamma_correct": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.GammaCorrect(ctx, in, out, numParam(p, "gamma_value", 1.0))
		},
		"adjust_volume": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.AdjustVolume(ctx, in, out, numParam(p, "factor", 1.0))
		},
		"rotate": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.Rotate(ctx, in, out, numParam(p, "angle", 0))
		},
		"fade_in": func(ctx context.Context, in, out string, p map[string]any) error {
			dur, ok := numParamOK(p, "duration")
			if !ok {
				return fmt.Errorf("%w: duration is required", backend.ErrInvalidParameter)
			}
			return d.backend.FadeIn(ctx, in, out, dur)
		},
		"fade_out": func(ctx context.Context, in, out string, p map[string]any) error {
			dur, ok := numParamOK(p, "duration")
			if !ok {
				return fmt.Errorf("%w: duration is required", backend.ErrInvalidParameter)
			}
			return d.backend.FadeOut(ctx, in, out, dur)
		},
		"mirror": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.Mirror(ctx, in, out, strParam(p, "direction", "horizontal"))
		},
		"normalize_audio": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.NormalizeAudio(ctx, in, out)
		},
		"add_background_music": func(ctx context.Context, in, out string, p map[string]any) error {
			music := strParam(p, "music_path", "")
			if music == "" {
				return fmt.Errorf("%w: music_path is required", backend.ErrInvalidParameter)
			}
			return d.backend.AddBackgroundMusic(ctx, in, out, music, backend.MusicParams{
				VolumeFactor: numParam(p, "volume_factor", 0.3),
				StartInVideo: numParam(p, "music_start_time_in_video", 0),
				Loop:         boolParam(p, "music_loop", false),
			})
		},
		"add_image_overlay": func(ctx context.Context, in, out string, p map[string]any) error {
			image := strParam(p, "image_path", "")
			if image == "" {
				return fmt.Errorf("%w: image_path is required", backend.ErrInvalidParameter)
			}
			return d.backend.AddImageOverlay(ctx, in, out, image, backend.OverlayParams{
				Position:   d.position(ctx, in, p["position"], "bottom_right"),
				SizeFactor: numParam(p, "size_factor", 0),
				Opacity:    numParam(p, "opacity", 0.8),
				Start:      numParam(p, "start_time", 0),
				Duration:   numParam(p, "duration", 0),
			})
		},
		"picture_in_picture": func(ctx context.Context, in, out string, p map[string]any) error {
			overlay := strParam(p, "overlay_video_path", "")
			if overlay == "" {
				return fmt.Errorf("%w: overlay_video_path is required", backend.ErrInvalidParameter)
			}
			return d.backend.PictureInPicture(ctx, in, out, overlay, backend.OverlayParams{
				Position:   d.position(ctx, in, p["position"], "top_right"),
				SizeFactor: numParam(p, "size_factor", 0),
				Start:      numParam(p, "start_time", 0),
				Duration:   numParam(p, "duration", 0),
			})
		},
		"blur": func(ctx context.Context, in, out string, p map[string]any) error {
			return d.backend.Blur(ctx, in, out, intParam(p, "radius", 2))
		},
		"concatenate": func(ctx context.Context, in, out string, p map[string]any) error {
			paths := listParam(p, "videos_to_append")
			return d.backend.Concatenate(ctx, in, paths, out)
		},
	}
}

// position resolves a placement descriptor against the current artifact's
// frame size. A malformed descriptor falls back to center with a warning.
func (d *Dispatcher) position(ctx context.Context, in string, desc any, def string) placement.Position {
	if desc == nil {
		desc = def
	}
	refW, refH := 0, 0
	if probe, err := d.backend.Probe(ctx, in); err == nil {
		refW, refH = probe.Width, probe.Height
	}
	pos, err := placement.Resolve(desc, refW, refH)
	if err != nil {
		d.logger.Warn("unparseable position descriptor, using center", "descriptor", fmt.Sprintf("%v", desc))
	}
	return pos
}

func numParam(p map[string]any, key string, def float64) float64 {
	if v, ok := numParamOK(p, key); ok {
		return v
	}
	return def
}

func numParamOK(p map[string]any, key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func intParam(p map[string]any, key string, def int) int {
	if v, ok := numParamOK(p, key); ok {
		return int(v)
	}
	return def
}

func strParam(p map[string]any, key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func boolParam(p map[string]any, key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

func listParam(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

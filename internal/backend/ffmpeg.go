package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/reelcut/reelcut-agent/internal/media"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// FFmpegBackend is the production Backend. Every transformation is one
// ffmpeg invocation with a bounded timeout; stderr is captured with a
// bounded buffer for failure diagnostics.
type FFmpegBackend struct {
	ffmpeg  string
	decoder media.Decoder
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFmpegBackend resolves the ffmpeg binary (empty means auto-detect) and
// borrows the decoder for probing.
func NewFFmpegBackend(ffmpegPath string, decoder media.Decoder, timeout time.Duration, logger *slog.Logger) (*FFmpegBackend, error) {
	path := ffmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}
	return &FFmpegBackend{ffmpeg: resolved, decoder: decoder, timeout: timeout, logger: logger}, nil
}

func (b *FFmpegBackend) Probe(ctx context.Context, path string) (*media.ProbeResult, error) {
	return b.decoder.Probe(ctx, path)
}

func (b *FFmpegBackend) Trim(ctx context.Context, in, out string, start, end float64) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if start < 0 {
		start = 0
	}
	if probe.Duration > 0 && start >= probe.Duration {
		return fmt.Errorf("%w: trim start %.2fs is beyond video duration %.2fs", ErrInvalidParameter, start, probe.Duration)
	}
	if end > 0 && start >= end {
		return fmt.Errorf("%w: trim start_time must be less than end_time", ErrInvalidParameter)
	}
	if end > probe.Duration && probe.Duration > 0 {
		end = probe.Duration
	}
	return b.run(ctx, "trim", trimArgs(in, out, start, end))
}

func (b *FFmpegBackend) ChangeSpeed(ctx context.Context, in, out string, factor float64) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if factor <= 0 {
		return fmt.Errorf("%w: speed factor must be greater than 0", ErrInvalidParameter)
	}
	return b.run(ctx, "speed", speedArgs(in, out, factor))
}

func (b *FFmpegBackend) AddText(ctx context.Context, in, out string, p TextParams) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if p.Start < 0 {
		p.Start = 0
	}
	if probe.Duration > 0 && p.Start >= probe.Duration {
		return fmt.Errorf("%w: text start_time is beyond video duration", ErrInvalidParameter)
	}
	end := clampEnd(p.Start, p.Duration, probe.Duration)
	return b.run(ctx, "add_text", textArgs(in, out, p, end))
}

func (b *FFmpegBackend) MuteAudio(ctx context.Context, in, out string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "mute_audio", muteArgs(in, out))
}

func (b *FFmpegBackend) ExtractAudio(ctx context.Context, in, audioOut string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "extract_audio", extractAudioArgs(in, audioOut))
}

func (b *FFmpegBackend) BlackAndWhite(ctx context.Context, in, out string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "black_and_white", videoFilterArgs(in, out, "hue=s=0"))
}

func (b *FFmpegBackend) InvertColors(ctx context.Context, in, out string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "invert_colors", videoFilterArgs(in, out, "negate"))
}

func (b *FFmpegBackend) GammaCorrect(ctx context.Context, in, out string, gamma float64) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if gamma <= 0 {
		return fmt.Errorf("%w: gamma value must be positive", ErrInvalidParameter)
	}
	return b.run(ctx, "gamma_correct", videoFilterArgs(in, out, fmt.Sprintf("eq=gamma=%s", num(gamma))))
}

func (b *FFmpegBackend) AdjustVolume(ctx context.Context, in, out string, factor float64) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if factor < 0 {
		return fmt.Errorf("%w: volume factor cannot be negative", ErrInvalidParameter)
	}
	return b.run(ctx, "adjust_volume", audioFilterArgs(in, out, fmt.Sprintf("volume=%s", num(factor))))
}

func (b *FFmpegBackend) Rotate(ctx context.Context, in, out string, angle float64) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "rotate", rotateArgs(in, out, angle))
}

func (b *FFmpegBackend) FadeIn(ctx context.Context, in, out string, duration float64) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if duration <= 0 {
		return fmt.Errorf("%w: fade duration must be positive", ErrInvalidParameter)
	}
	return b.run(ctx, "fade_in", fadeInArgs(in, out, duration))
}

func (b *FFmpegBackend) FadeOut(ctx context.Context, in, out string, duration float64) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if duration <= 0 {
		return fmt.Errorf("%w: fade duration must be positive", ErrInvalidParameter)
	}
	return b.run(ctx, "fade_out", fadeOutArgs(in, out, duration, probe.Duration))
}

func (b *FFmpegBackend) Mirror(ctx context.Context, in, out string, direction string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	var filter string
	switch direction {
	case "horizontal":
		filter = "hflip"
	case "vertical":
		filter = "vflip"
	default:
		return fmt.Errorf("%w: mirror direction must be 'horizontal' or 'vertical'", ErrInvalidParameter)
	}
	return b.run(ctx, "mirror", videoFilterArgs(in, out, filter))
}

func (b *FFmpegBackend) NormalizeAudio(ctx context.Context, in, out string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	return b.run(ctx, "normalize_audio", audioFilterArgs(in, out, "loudnorm"))
}

func (b *FFmpegBackend) AddBackgroundMusic(ctx context.Context, in, out, musicPath string, p MusicParams) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if err := b.requireFile(musicPath); err != nil {
		return err
	}
	if probe.Duration > 0 && p.StartInVideo >= probe.Duration {
		return fmt.Errorf("%w: music start time is at or after the video's end", ErrInvalidParameter)
	}
	if p.VolumeFactor <= 0 {
		p.VolumeFactor = 0.3
	}
	return b.run(ctx, "add_background_music", musicArgs(in, out, musicPath, p))
}

func (b *FFmpegBackend) AddImageOverlay(ctx context.Context, in, out, imagePath string, p OverlayParams) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if err := b.requireFile(imagePath); err != nil {
		return err
	}
	if p.Start < 0 {
		p.Start = 0
	}
	if probe.Duration > 0 && p.Start >= probe.Duration {
		return fmt.Errorf("%w: overlay start_time is beyond video duration", ErrInvalidParameter)
	}
	if p.Opacity <= 0 || p.Opacity > 1 {
		p.Opacity = 0.8
	}
	end := clampEnd(p.Start, p.Duration, probe.Duration)
	return b.run(ctx, "add_image_overlay", imageOverlayArgs(in, out, imagePath, p, end))
}

func (b *FFmpegBackend) PictureInPicture(ctx context.Context, in, out, overlayVideo string, p OverlayParams) error {
	probe, err := b.probeInput(ctx, in)
	if err != nil {
		return err
	}
	if err := b.requireFile(overlayVideo); err != nil {
		return err
	}
	if p.Start < 0 {
		p.Start = 0
	}
	if probe.Duration > 0 && p.Start >= probe.Duration {
		return fmt.Errorf("%w: picture-in-picture start_time is beyond video duration", ErrInvalidParameter)
	}
	end := clampEnd(p.Start, p.Duration, probe.Duration)
	return b.run(ctx, "picture_in_picture", pipArgs(in, out, overlayVideo, p, end))
}

func (b *FFmpegBackend) Blur(ctx context.Context, in, out string, radius int) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if radius < 0 {
		return fmt.Errorf("%w: blur radius cannot be negative", ErrInvalidParameter)
	}
	return b.run(ctx, "blur", blurArgs(in, out, radius))
}

func (b *FFmpegBackend) Concatenate(ctx context.Context, in string, appendPaths []string, out string) error {
	if err := b.requireFile(in); err != nil {
		return err
	}
	if len(appendPaths) == 0 {
		return fmt.Errorf("%w: list of videos to append cannot be empty", ErrInvalidParameter)
	}
	for _, p := range appendPaths {
		if err := b.requireFile(p); err != nil {
			return err
		}
	}
	return b.run(ctx, "concatenate", concatArgs(in, appendPaths, out))
}

func (b *FFmpegBackend) requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	}
	return nil
}

func (b *FFmpegBackend) probeInput(ctx context.Context, path string) (*media.ProbeResult, error) {
	if err := b.requireFile(path); err != nil {
		return nil, err
	}
	probe, err := b.decoder.Probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("probe %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: cannot read %s: %v", ErrInvalidParameter, path, err)
	}
	return probe, nil
}

// clampEnd computes the effective end timestamp of a timed effect: an unset
// or oversized duration runs to the end of the video.
func clampEnd(start, duration, total float64) float64 {
	if total <= 0 {
		if duration <= 0 {
			return start + 3600 // unknown duration; effectively unbounded
		}
		return start + duration
	}
	if duration <= 0 || start+duration > total {
		return total
	}
	return start + duration
}

// run executes one ffmpeg invocation with a bounded timeout.
func (b *FFmpegBackend) run(ctx context.Context, action string, args []string) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.ffmpeg, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	if b.logger != nil {
		b.logger.Info("executing transformation", "action", action, "args", args)
	}

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		if b.logger != nil {
			b.logger.Warn("transformation failed",
				"action", action,
				"exit_code", exitCode,
				"duration_ms", elapsed.Milliseconds(),
				"stderr_tail", truncate(stderrBuf.String(), 512),
			)
		}
		return &ProcessError{
			Action:     action,
			ExitCode:   exitCode,
			StderrTail: stderrBuf.String(),
			Duration:   elapsed,
		}
	}

	if b.logger != nil {
		b.logger.Info("transformation succeeded",
			"action", action,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}

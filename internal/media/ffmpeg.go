package media

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const DefaultFrameRate = 30.0

// FFmpegDecoder decodes frames by streaming PNG-encoded images from an
// ffmpeg subprocess and probes files with ffprobe.
type FFmpegDecoder struct {
	ffmpeg       string
	ffprobe      string
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewFFmpegDecoder resolves the ffmpeg and ffprobe binaries. Empty paths
// mean auto-detect on PATH.
func NewFFmpegDecoder(ffmpegPath, ffprobePath string, probeTimeout time.Duration, logger *slog.Logger) (*FFmpegDecoder, error) {
	ffmpeg, err := resolveBinary(ffmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(ffprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}
	return &FFmpegDecoder{ffmpeg: ffmpeg, ffprobe: ffprobe, probeTimeout: probeTimeout, logger: logger}, nil
}

func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("no %s binary found on PATH", name)
	}
	return p, nil
}

// ffprobe JSON output shapes.
type probePayload struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

func (d *FFmpegDecoder) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var payload probePayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	result.Duration, _ = strconv.ParseFloat(payload.Format.Duration, 64)

	for _, s := range payload.Streams {
		if s.CodecType != "video" {
			continue
		}
		result.Width = s.Width
		result.Height = s.Height
		result.Codec = s.CodecName
		result.FrameRate = parseFrameRate(s.RFrameRate)
		if result.FrameRate <= 0 {
			result.FrameRate = parseFrameRate(s.AvgFrameRate)
		}
		if result.Duration <= 0 {
			result.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		}
		break
	}

	if result.FrameRate <= 0 {
		if d.logger != nil {
			d.logger.Warn("probe returned no usable frame rate, using default",
				"path", path, "default_fps", DefaultFrameRate)
		}
		result.FrameRate = DefaultFrameRate
	}
	if result.Duration < 0 {
		result.Duration = 0
	}

	return result, nil
}

// parseFrameRate parses ffprobe's rational rates, e.g. "30000/1001".
func parseFrameRate(raw string) float64 {
	if raw == "" || raw == "0/0" {
		return 0
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

func (d *FFmpegDecoder) Open(ctx context.Context, path string, opts Options) (Clip, error) {
	probe, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	return &ffmpegClip{
		decoder: d,
		path:    path,
		opts:    opts,
		fps:     probe.FrameRate,
		dur:     probe.Duration,
	}, nil
}

// ffmpegClip streams frames from a long-running ffmpeg process writing a
// PNG sequence to stdout. Seeking tears the stream down and restarts it at
// the requested offset; the cursor is derived from the stream start plus the
// number of frames read.
type ffmpegClip struct {
	decoder *FFmpegDecoder
	path    string
	opts    Options
	fps     float64
	dur     float64

	cmd        *exec.Cmd
	stdout     io.ReadCloser
	reader     *bufio.Reader
	streamFrom float64
	framesRead int
	closed     bool
}

func (c *ffmpegClip) ReadFrame() (image.Image, error) {
	if c.closed {
		return nil, fmt.Errorf("clip is closed")
	}
	if c.cmd == nil {
		if err := c.startStream(c.streamFrom); err != nil {
			return nil, err
		}
	}

	img, err := png.Decode(c.reader)
	if err != nil {
		// ffmpeg closes stdout when the stream is exhausted; any decode
		// error at that point is end-of-stream, not corruption.
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		if _, peekErr := c.reader.Peek(1); peekErr == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	c.framesRead++
	return img, nil
}

func (c *ffmpegClip) Seek(sec float64) (float64, error) {
	if c.closed {
		return 0, fmt.Errorf("clip is closed")
	}
	if sec < 0 {
		sec = 0
	}
	if c.dur > 0 && sec > c.dur {
		sec = c.dur
	}
	c.stopStream()
	c.streamFrom = sec
	c.framesRead = 0
	return sec, nil
}

func (c *ffmpegClip) Position() float64 {
	return c.streamFrom + float64(c.framesRead)/c.fps
}

func (c *ffmpegClip) FPS() float64 {
	return c.fps
}

func (c *ffmpegClip) Duration() float64 {
	return c.dur
}

func (c *ffmpegClip) Close() error {
	if c.closed {
		return nil
	}
	c.stopStream()
	c.closed = true
	return nil
}

func (c *ffmpegClip) startStream(from float64) error {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", from),
		"-i", c.path,
	}
	if c.opts.TargetWidth > 0 && c.opts.TargetHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease",
			c.opts.TargetWidth, c.opts.TargetHeight))
	}
	args = append(args, "-f", "image2pipe", "-vcodec", "png", "-")

	cmd := exec.Command(c.decoder.ffmpeg, args...)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg stream: %w", err)
	}

	c.cmd = cmd
	c.stdout = stdout
	c.reader = bufio.NewReaderSize(stdout, 1<<20)
	c.streamFrom = from
	c.framesRead = 0
	return nil
}

func (c *ffmpegClip) stopStream() {
	if c.cmd == nil {
		return
	}
	// Advance the logical cursor so Position stays meaningful after stop.
	c.streamFrom = c.Position()
	c.framesRead = 0

	c.stdout.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.cmd.Wait()
	c.cmd = nil
	c.stdout = nil
	c.reader = nil
}

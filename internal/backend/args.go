package backend

import (
	"fmt"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/placement"
)

// Arg builders for each operation's ffmpeg filter graph. Kept separate from
// process execution so they can be tested without ffmpeg installed.

func trimArgs(in, out string, start, end float64) []string {
	args := []string{"-ss", secs(start)}
	if end > 0 {
		args = append(args, "-to", secs(end))
	}
	args = append(args, "-i", in, "-c:v", "libx264", "-c:a", "aac", "-y", out)
	return args
}

func speedArgs(in, out string, factor float64) []string {
	video := fmt.Sprintf("[0:v]setpts=PTS/%s[v]", num(factor))
	audio := fmt.Sprintf("[0:a]%s[a]", atempoChain(factor))
	return []string{
		"-i", in,
		"-filter_complex", video + ";" + audio,
		"-map", "[v]", "-map", "[a]",
		"-y", out,
	}
}

// atempoChain decomposes a speed factor into a chain of atempo filters.
// ffmpeg constrains a single atempo to [0.5, 2.0].
func atempoChain(factor float64) string {
	var parts []string
	for factor > 2.0 {
		parts = append(parts, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		parts = append(parts, "atempo=0.5")
		factor /= 0.5
	}
	parts = append(parts, "atempo="+num(factor))
	return strings.Join(parts, ",")
}

func textArgs(in, out string, p TextParams, end float64) []string {
	x, y := drawtextXY(p.Position)
	draw := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:font='%s':bordercolor=%s:borderw=%s:x=%s:y=%s:enable='between(t,%s,%s)'",
		escapeText(p.Text), p.FontSize, p.Color, p.Font, p.StrokeColor, num(p.StrokeWidth),
		x, y, secs(p.Start), secs(end),
	)
	return []string{"-i", in, "-vf", draw, "-c:a", "copy", "-y", out}
}

func muteArgs(in, out string) []string {
	return []string{"-i", in, "-c:v", "copy", "-an", "-y", out}
}

func extractAudioArgs(in, audioOut string) []string {
	return []string{"-i", in, "-vn", "-acodec", "libmp3lame", "-q:a", "2", "-y", audioOut}
}

func videoFilterArgs(in, out, filter string) []string {
	return []string{"-i", in, "-vf", filter, "-c:a", "copy", "-y", out}
}

func audioFilterArgs(in, out, filter string) []string {
	return []string{"-i", in, "-af", filter, "-c:v", "copy", "-y", out}
}

func rotateArgs(in, out string, angle float64) []string {
	// Output canvas is expanded so non-right-angle rotations are not cropped.
	rad := fmt.Sprintf("%s*PI/180", num(angle))
	filter := fmt.Sprintf("rotate=%s:ow=rotw(%s):oh=roth(%s)", rad, rad, rad)
	return videoFilterArgs(in, out, filter)
}

func fadeInArgs(in, out string, duration float64) []string {
	filter := fmt.Sprintf("fade=t=in:st=0:d=%s", secs(duration))
	afade := fmt.Sprintf("afade=t=in:st=0:d=%s", secs(duration))
	return []string{"-i", in, "-vf", filter, "-af", afade, "-y", out}
}

func fadeOutArgs(in, out string, fadeDur, total float64) []string {
	start := total - fadeDur
	if start < 0 {
		start = 0
	}
	filter := fmt.Sprintf("fade=t=out:st=%s:d=%s", secs(start), secs(fadeDur))
	afade := fmt.Sprintf("afade=t=out:st=%s:d=%s", secs(start), secs(fadeDur))
	return []string{"-i", in, "-vf", filter, "-af", afade, "-y", out}
}

func musicArgs(in, out, musicPath string, p MusicParams) []string {
	delayMs := int(p.StartInVideo * 1000)
	chain := fmt.Sprintf("volume=%s", num(p.VolumeFactor))
	if p.Loop {
		// aloop repeats the whole decoded buffer; amix duration=first caps
		// the result at the main video's length.
		chain = "aloop=loop=-1:size=2e9," + chain
	}
	chain += fmt.Sprintf(",adelay=%d|%d", delayMs, delayMs)
	graph := fmt.Sprintf("[1:a]%s[m];[0:a][m]amix=inputs=2:duration=first[a]", chain)
	return []string{
		"-i", in,
		"-i", musicPath,
		"-filter_complex", graph,
		"-map", "0:v", "-map", "[a]",
		"-c:v", "copy",
		"-y", out,
	}
}

func imageOverlayArgs(in, out, imagePath string, p OverlayParams, end float64) []string {
	size := p.SizeFactor
	if size <= 0 {
		size = 0.1 // default: 10% of the main frame height
	}
	x, y := overlayXY(p.Position)
	scaled := fmt.Sprintf("[1:v]scale=-1:ih*%s,format=rgba,colorchannelmixer=aa=%s[ov]",
		num(size), num(p.Opacity))
	overlay := fmt.Sprintf("[0:v][ov]overlay=%s:%s:enable='between(t,%s,%s)'[v]",
		x, y, secs(p.Start), secs(end))
	return []string{
		"-i", in,
		"-i", imagePath,
		"-filter_complex", scaled + ";" + overlay,
		"-map", "[v]", "-map", "0:a?",
		"-c:a", "copy",
		"-y", out,
	}
}

func pipArgs(in, out, overlayVideo string, p OverlayParams, end float64) []string {
	size := p.SizeFactor
	if size <= 0 {
		size = 0.25 // default: 25% of the main frame width
	}
	x, y := overlayXY(p.Position)
	scaled := fmt.Sprintf("[1:v]scale=iw*%s:-1[pip]", num(size))
	overlay := fmt.Sprintf("[0:v][pip]overlay=%s:%s:enable='between(t,%s,%s)'[v]",
		x, y, secs(p.Start), secs(end))
	return []string{
		"-i", in,
		"-i", overlayVideo,
		"-filter_complex", scaled + ";" + overlay,
		"-map", "[v]", "-map", "0:a?",
		"-c:a", "copy",
		"-y", out,
	}
}

func blurArgs(in, out string, radius int) []string {
	return videoFilterArgs(in, out, fmt.Sprintf("gblur=sigma=%d", radius))
}

func concatArgs(in string, appendPaths []string, out string) []string {
	args := []string{"-i", in}
	for _, p := range appendPaths {
		args = append(args, "-i", p)
	}
	n := len(appendPaths) + 1
	var graph strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&graph, "[%d:v][%d:a]", i, i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1[v][a]", n)
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[v]", "-map", "[a]",
		"-y", out,
	)
	return args
}

// overlayXY converts a resolved placement into overlay-filter coordinate
// expressions (main_w/main_h vs overlay_w/overlay_h).
func overlayXY(pos placement.Position) (string, string) {
	if pos.Absolute {
		return pairAxis(pos.XKeyword, pos.X, "main_w", "overlay_w"),
			pairAxis(pos.YKeyword, pos.Y, "main_h", "overlay_h")
	}
	cx, cy := "(main_w-overlay_w)/2", "(main_h-overlay_h)/2"
	switch pos.Keyword {
	case "left":
		return "0", cy
	case "right":
		return "main_w-overlay_w", cy
	case "top":
		return cx, "0"
	case "bottom":
		return cx, "main_h-overlay_h"
	case "top_left":
		return "0", "0"
	case "top_right":
		return "main_w-overlay_w", "0"
	case "bottom_left":
		return "0", "main_h-overlay_h"
	case "bottom_right":
		return "main_w-overlay_w", "main_h-overlay_h"
	default:
		return cx, cy
	}
}

// drawtextXY converts a resolved placement into drawtext coordinate
// expressions (w/h vs text_w/text_h).
func drawtextXY(pos placement.Position) (string, string) {
	if pos.Absolute {
		return pairAxis(pos.XKeyword, pos.X, "w", "text_w"),
			pairAxis(pos.YKeyword, pos.Y, "h", "text_h")
	}
	cx, cy := "(w-text_w)/2", "(h-text_h)/2"
	switch pos.Keyword {
	case "left":
		return "0", cy
	case "right":
		return "w-text_w", cy
	case "top":
		return cx, "0"
	case "bottom":
		return cx, "h-text_h"
	case "top_left":
		return "0", "0"
	case "top_right":
		return "w-text_w", "0"
	case "bottom_left":
		return "0", "h-text_h"
	case "bottom_right":
		return "w-text_w", "h-text_h"
	default:
		return cx, cy
	}
}

// pairAxis maps one pair component to a coordinate expression. Axis keywords
// align by the overlay's own size; numeric components are pixels.
func pairAxis(keyword string, px float64, frame, self string) string {
	switch keyword {
	case "left", "top":
		return "0"
	case "center":
		return fmt.Sprintf("(%s-%s)/2", frame, self)
	case "right", "bottom":
		return fmt.Sprintf("%s-%s", frame, self)
	}
	return num(px)
}

// escapeText escapes characters with meaning inside a drawtext expression.
func escapeText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

func secs(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// num formats a float compactly for filter expressions.
func num(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

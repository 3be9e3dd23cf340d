package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lyricsync/internal/services"
)

// DefaultBinary is the ffmpeg executable name.
const DefaultBinary = "ffmpeg"

// Request describes one render.
type Request struct {
	Audio     string
	Subtitles string
	// Background is an image or video file; empty renders Colour.
	Background string
	Colour     string
	Output     string
	Width      int
	Height     int
	FPS        int
	// Duration bounds a colour background, in seconds.
	Duration   float64
	VideoCodec string
	AudioCodec string
}

// Service runs ffmpeg.
type Service struct {
	binary        string
	timeout       time.Duration
	commandRunner services.CommandRunner
}

// NewService constructs a renderer.
func NewService(binary string, timeout time.Duration) *Service {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Service{binary: binary, timeout: timeout, commandRunner: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) *Service {
	if runner != nil {
		s.commandRunner = runner
	}
	return s
}

// Render writes req.Output.
func (s *Service) Render(ctx context.Context, req Request) error {
	if err := req.validate(); err != nil {
		return services.Wrap(services.ErrValidation, "ffmpeg", "render", err.Error(), nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return fmt.Errorf("render: ensure output dir: %w", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.commandRunner(ctx, s.binary, BuildArgs(req)...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ffmpeg", "render", "video render timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "render", "ffmpeg failed", err)
	}
	return nil
}

func (r Request) validate() error {
	switch {
	case strings.TrimSpace(r.Audio) == "":
		return errors.New("audio path required")
	case strings.TrimSpace(r.Subtitles) == "":
		return errors.New("subtitle path required")
	case strings.TrimSpace(r.Output) == "":
		return errors.New("output path required")
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("invalid resolution %dx%d", r.Width, r.Height)
	case r.Background == "" && r.Duration <= 0:
		return errors.New("duration required for a colour background")
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments for req. Input 0 is the background
// and input 1 the audio.
func BuildArgs(req Request) []string {
	fps := req.FPS
	if fps <= 0 {
		fps = 30
	}
	size := fmt.Sprintf("%dx%d", req.Width, req.Height)
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	filters := make([]string, 0, 3)
	switch {
	case req.Background == "":
		colour := req.Colour
		if colour == "" {
			colour = "black"
		}
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("color=c=%s:s=%s:r=%d:d=%s", colour, size, fps, formatSeconds(req.Duration)))
	case isImage(req.Background):
		args = append(args, "-loop", "1", "-framerate", strconv.Itoa(fps), "-i", req.Background)
		filters = append(filters, coverFilter(req.Width, req.Height))
	default:
		args = append(args, "-stream_loop", "-1", "-i", req.Background)
		filters = append(filters, coverFilter(req.Width, req.Height), "fps="+strconv.Itoa(fps))
	}
	args = append(args, "-i", req.Audio)

	filters = append(filters, subtitleFilter(req.Subtitles))
	args = append(args,
		"-vf", strings.Join(filters, ","),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", orDefault(req.VideoCodec, "libx264"),
		"-pix_fmt", "yuv420p",
		"-c:a", orDefault(req.AudioCodec, "aac"),
		"-shortest",
		req.Output,
	)
	return args
}

func coverFilter(w, h int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
}

func subtitleFilter(path string) string {
	name := "subtitles"
	if strings.EqualFold(filepath.Ext(path), ".ass") {
		name = "ass"
	}
	return name + "=" + escapeFilterPath(path)
}

// escapeFilterPath quotes a path for use inside a filtergraph option.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `'`, `\\\'`, `:`, `\\:`, `,`, `\,`, `[`, `\[`, `]`, `\]`, `;`, `\;`)
	return r.Replace(path)
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp":
		return true
	}
	return false
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

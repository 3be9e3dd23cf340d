package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"lyricsync/internal/language"
	"lyricsync/internal/media/ffprobe"
	"lyricsync/internal/services"
)

// Info summarizes a probed song file.
type Info struct {
	Path     string
	Duration float64
	Artist   string
	Title    string
	Language string
}

// Prober measures song files.
type Prober struct {
	ffprobe string
	run     ffprobe.OutputRunner
}

// Option configures a Prober.
type Option func(*Prober)

// WithOutputRunner overrides how ffprobe is executed.
func WithOutputRunner(run ffprobe.OutputRunner) Option {
	return func(p *Prober) {
		if run != nil {
			p.run = run
		}
	}
}

// NewProber constructs a Prober using the given ffprobe binary.
func NewProber(ffprobeBinary string, opts ...Option) *Prober {
	p := &Prober{ffprobe: strings.TrimSpace(ffprobeBinary)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns duration and tag metadata for path.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, services.Wrap(services.ErrNotFound, "probe", "stat song", "Song file not found", err)
	}
	info := Info{Path: path}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if d, err := WAVDuration(path); err == nil && d > 0 {
			info.Duration = d
			return info, nil
		}
	}
	result, err := ffprobe.InspectWith(ctx, p.run, p.ffprobe, path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", "Unable to inspect song", err)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	info.Duration = duration
	info.Artist = firstTag(result, "artist", "album_artist", "TPE1")
	info.Title = firstTag(result, "title", "TIT2")
	info.Language = language.FromTags(result.Tags())
	return info, nil
}

// Duration returns the song length in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	info, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// WAVDuration reads the duration from a WAV header.
func WAVDuration(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file: %s", path)
	}
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav duration: %w", err)
	}
	return duration.Seconds(), nil
}

func firstTag(result ffprobe.Result, keys ...string) string {
	for _, key := range keys {
		if v := result.Tag(key); v != "" {
			return v
		}
	}
	return ""
}

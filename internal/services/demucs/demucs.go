package demucs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lyricsync/internal/services"
)

// Defaults for the demucs command.
const (
	DefaultBinary = "demucs"
	DefaultModel  = "htdemucs"
)

// Config captures runtime settings for stem separation.
type Config struct {
	Binary  string
	Model   string
	Device  string
	Timeout time.Duration
}

// Stems holds the paths of the separated audio files.
type Stems struct {
	Vocals       string
	Instrumental string
}

// Service runs demucs.
type Service struct {
	cfg           Config
	commandRunner services.CommandRunner
}

// NewService constructs a separator.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Service{cfg: cfg, commandRunner: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) *Service {
	if runner != nil {
		s.commandRunner = runner
	}
	return s
}

// Binary returns the configured executable name.
func (s *Service) Binary() string { return s.cfg.Binary }

// StemPaths returns where demucs writes the stems of song under outDir:
// <outDir>/<model>/<song basename>/{vocals,no_vocals}.wav.
func (s *Service) StemPaths(songPath, outDir string) Stems {
	base := strings.TrimSuffix(filepath.Base(songPath), filepath.Ext(songPath))
	dir := filepath.Join(outDir, s.cfg.Model, base)
	return Stems{
		Vocals:       filepath.Join(dir, "vocals.wav"),
		Instrumental: filepath.Join(dir, "no_vocals.wav"),
	}
}

// Separate splits songPath into vocal and instrumental stems. Existing stems
// from an earlier run are reused.
func (s *Service) Separate(ctx context.Context, songPath, outDir string) (Stems, error) {
	if strings.TrimSpace(songPath) == "" {
		return Stems{}, services.Wrap(services.ErrValidation, "demucs", "separate", "song path required", nil)
	}
	stems := s.StemPaths(songPath, outDir)
	if exists(stems.Vocals) && exists(stems.Instrumental) {
		return stems, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stems{}, fmt.Errorf("separate: ensure output dir: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := s.commandRunner(ctx, s.cfg.Binary, s.buildArgs(songPath, outDir)...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Stems{}, services.Wrap(services.ErrTimeout, "demucs", "separate", "stem separation timed out", err)
		}
		return Stems{}, services.Wrap(services.ErrExternalTool, "demucs", "separate", "demucs failed", err)
	}
	for _, path := range []string{stems.Vocals, stems.Instrumental} {
		if !exists(path) {
			return Stems{}, services.Wrap(services.ErrExternalTool, "demucs", "separate", "missing stem "+filepath.Base(path), nil)
		}
	}
	return stems, nil
}

func (s *Service) buildArgs(songPath, outDir string) []string {
	args := []string{"--two-stems=vocals", "-n", s.cfg.Model, "-o", outDir}
	if s.cfg.Device != "" {
		args = append(args, "-d", s.cfg.Device)
	}
	return append(args, songPath)
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

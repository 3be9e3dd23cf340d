package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lyricsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Lyrics lookup, caching, video and correction start disabled so a test opts
// into exactly the collaborators it exercises.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Lyrics.Source = "none"
	cfgVal.Lyrics.Cache = false
	cfgVal.Subtitles.Format = "srt"
	cfgVal.Video.Enabled = false
	cfgVal.Correction.Enabled = false
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLyricsServer points the LRCLIB client at baseURL.
func WithLyricsServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lyrics.Source = "lrclib"
		b.cfg.Lyrics.BaseURL = baseURL
	}
}

// WithLyricsCache enables the on-disk lyrics cache under the temp cache dir.
func WithLyricsCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lyrics.Cache = true
	}
}

// WithVideo enables rendering.
func WithVideo() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.Enabled = true
	}
}

// WithConfig applies an arbitrary edit to the generated config.
func WithConfig(edit func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		edit(b.cfg)
	}
}

// WithCreatedDirs creates the work, output and cache directories.
func WithCreatedDirs() ConfigOption {
	return func(b *configBuilder) {
		for _, dir := range []string{b.cfg.Paths.WorkDir, b.cfg.Paths.OutputDir, b.cfg.Paths.CacheDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every external tool a run can
// execute is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"whisperx", "demucs", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteConfigFile encodes cfg as TOML beside its temp directories and returns
// the file path, for tests that drive the CLI through --config.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

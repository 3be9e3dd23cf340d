package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"lyricsync/internal/align"
	"lyricsync/internal/repair"
	"lyricsync/internal/subtitles"
	"lyricsync/internal/transcript"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Alignment tunes the word aligner.
type Alignment struct {
	Threshold         float64 `toml:"threshold"`
	MatchWeight       float64 `toml:"match_weight"`
	GapOpen           float64 `toml:"gap_open"`
	GapExtend         float64 `toml:"gap_extend"`
	KeepLowConfidence bool    `toml:"keep_low_confidence"`
}

// Repair tunes cue timing repair. Durations are seconds.
type Repair struct {
	MinDuration float64 `toml:"min_duration"`
	MaxDuration float64 `toml:"max_duration"`
}

// Transcript controls recogniser noise filtering ahead of alignment.
type Transcript struct {
	Filter             bool     `toml:"filter"`
	UnwantedPhrases    []string `toml:"unwanted_phrases"`
	DropHallucinations bool     `toml:"drop_hallucinations"`
	EarlyWindow        float64  `toml:"early_window"`
	EarlyMinWords      int      `toml:"early_min_words"`
	MinSegmentDuration float64  `toml:"min_segment_duration"`
	MinSegmentWords    int      `toml:"min_segment_words"`
}

// Lyrics configures the reference lyrics source and cache.
type Lyrics struct {
	Source         string `toml:"source"`
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Cache          bool   `toml:"cache"`
	// AllowTranscriptOnly falls back to recogniser text when no lyrics exist.
	AllowTranscriptOnly bool `toml:"allow_transcript_only"`
}

// Subtitles configures the emitted subtitle file.
type Subtitles struct {
	Format          string  `toml:"format"`
	Font            string  `toml:"font"`
	FontSize        int     `toml:"font_size"`
	PrimaryColour   string  `toml:"primary_colour"`
	SecondaryColour string  `toml:"secondary_colour"`
	OutlineColour   string  `toml:"outline_colour"`
	Outline         int     `toml:"outline"`
	TitleSeconds    float64 `toml:"title_seconds"`
	Sweep           bool    `toml:"sweep"`
}

// Video configures the karaoke video render.
type Video struct {
	Enabled        bool   `toml:"enabled"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	FPS            int    `toml:"fps"`
	Background     string `toml:"background"`
	Colour         string `toml:"colour"`
	VideoCodec     string `toml:"video_codec"`
	AudioCodec     string `toml:"audio_codec"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Separation configures vocal stem separation.
type Separation struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Device         string `toml:"device"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperX configures the transcriber.
type WhisperX struct {
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Device         string `toml:"device"`
	ComputeType    string `toml:"compute_type"`
	BatchSize      int    `toml:"batch_size"`
	VADMethod      string `toml:"vad_method"`
	HFToken        string `toml:"hf_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains LLM connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Correction toggles the LLM lyric correction pass.
type Correction struct {
	Enabled bool `toml:"enabled"`
}

// Metrics configures the Prometheus textfile written after each run.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Config encapsulates all configuration values for lyricsync.
//
// Configuration sections by subsystem:
//   - Paths: work, output, log, and cache directories
//   - Alignment, Repair, Transcript: reconciliation engine tunables
//   - Lyrics: reference lyrics source, cache, and not-found policy
//   - Subtitles: output format and karaoke style
//   - Video, Separation, WhisperX: external tool settings
//   - LLM, Correction: optional lyric text correction
//   - Metrics, Logging: observability
type Config struct {
	Paths      Paths      `toml:"paths"`
	Alignment  Alignment  `toml:"alignment"`
	Repair     Repair     `toml:"repair"`
	Transcript Transcript `toml:"transcript"`
	Lyrics     Lyrics     `toml:"lyrics"`
	Subtitles  Subtitles  `toml:"subtitles"`
	Video      Video      `toml:"video"`
	Separation Separation `toml:"separation"`
	WhisperX   WhisperX   `toml:"whisperx"`
	LLM        LLM        `toml:"llm"`
	Correction Correction `toml:"correction"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lyricsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, output, log, and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LyricsCachePath returns the SQLite lyrics cache location, or "" when the
// cache is disabled.
func (c *Config) LyricsCachePath() string {
	if !c.Lyrics.Cache || strings.TrimSpace(c.Paths.CacheDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.CacheDir, "lyrics.db")
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// AlignConfig maps [alignment] onto the aligner's config.
func (c *Config) AlignConfig() align.Config {
	return align.Config{
		Threshold:         c.Alignment.Threshold,
		MatchWeight:       c.Alignment.MatchWeight,
		GapOpen:           c.Alignment.GapOpen,
		GapExtend:         c.Alignment.GapExtend,
		KeepLowConfidence: c.Alignment.KeepLowConfidence,
	}
}

// RepairConfig maps [repair] onto the repair config.
func (c *Config) RepairConfig() repair.Config {
	return repair.Config{
		MinDuration: c.Repair.MinDuration,
		MaxDuration: c.Repair.MaxDuration,
	}
}

// FilterOptions maps [transcript] onto filter options. A disabled filter
// yields the zero value, which removes nothing.
func (c *Config) FilterOptions() transcript.FilterOptions {
	if !c.Transcript.Filter {
		return transcript.FilterOptions{}
	}
	return transcript.FilterOptions{
		UnwantedPhrases:    append([]string(nil), c.Transcript.UnwantedPhrases...),
		DropHallucinations: c.Transcript.DropHallucinations,
		EarlyWindow:        c.Transcript.EarlyWindow,
		EarlyMinWords:      c.Transcript.EarlyMinWords,
		MinDuration:        c.Transcript.MinSegmentDuration,
		MinWords:           c.Transcript.MinSegmentWords,
	}
}

// SubtitleFormat returns the parsed output format.
func (c *Config) SubtitleFormat() subtitles.Format {
	f, err := subtitles.ParseFormat(c.Subtitles.Format)
	if err != nil {
		return subtitles.FormatSRT
	}
	return f
}

// ASSOptions maps [subtitles] and [video] onto the ASS writer options.
func (c *Config) ASSOptions(artist, title string) subtitles.ASSOptions {
	return subtitles.ASSOptions{
		Title:           title,
		Artist:          artist,
		Font:            c.Subtitles.Font,
		FontSize:        c.Subtitles.FontSize,
		PlayResX:        c.Video.Width,
		PlayResY:        c.Video.Height,
		PrimaryColour:   c.Subtitles.PrimaryColour,
		SecondaryColour: c.Subtitles.SecondaryColour,
		OutlineColour:   c.Subtitles.OutlineColour,
		Outline:         c.Subtitles.Outline,
		TitleDuration:   c.Subtitles.TitleSeconds,
		Sweep:           c.Subtitles.Sweep,
	}
}

// LLMConfig contains the LLM connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

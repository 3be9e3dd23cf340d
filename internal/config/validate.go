package config

import (
	"errors"
	"fmt"
	"strings"

	"lyricsync/internal/subtitles"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateEngine,
		c.validateLyrics,
		c.validateSubtitles,
		c.validateVideo,
		c.validateTools,
		c.validateCorrection,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := c.AlignConfig().Validate(); err != nil {
		return fmt.Errorf("alignment: %w", err)
	}
	if err := c.RepairConfig().Validate(); err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	if c.Transcript.EarlyWindow < 0 || c.Transcript.MinSegmentDuration < 0 {
		return errors.New("transcript: durations must not be negative")
	}
	if c.Transcript.EarlyMinWords < 0 || c.Transcript.MinSegmentWords < 0 {
		return errors.New("transcript: word counts must not be negative")
	}
	return nil
}

func (c *Config) validateLyrics() error {
	switch c.Lyrics.Source {
	case "lrclib", "none":
	default:
		return fmt.Errorf("lyrics.source must be lrclib or none, got %q", c.Lyrics.Source)
	}
	if c.Lyrics.Source == "lrclib" && !strings.HasPrefix(c.Lyrics.BaseURL, "http") {
		return fmt.Errorf("lyrics.base_url must be an http(s) URL, got %q", c.Lyrics.BaseURL)
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if _, err := subtitles.ParseFormat(c.Subtitles.Format); err != nil {
		return fmt.Errorf("subtitles.format: %w", err)
	}
	if c.Subtitles.FontSize < 0 || c.Subtitles.Outline < 0 {
		return errors.New("subtitles.font_size and subtitles.outline must not be negative")
	}
	if c.Subtitles.TitleSeconds < 0 {
		return errors.New("subtitles.title_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if !c.Video.Enabled {
		return nil
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("video.width and video.height must be positive, got %dx%d", c.Video.Width, c.Video.Height)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("video.fps must be positive, got %d", c.Video.FPS)
	}
	if strings.TrimSpace(c.Video.Background) == "" && strings.TrimSpace(c.Video.Colour) == "" {
		return errors.New("video.colour must be set when video.background is empty")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.WhisperX.BatchSize < 0 {
		return errors.New("whisperx.batch_size must not be negative")
	}
	switch c.WhisperX.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("whisperx.vad_method must be silero or pyannote, got %q", c.WhisperX.VADMethod)
	}
	if c.WhisperX.VADMethod == "pyannote" && c.WhisperX.HFToken == "" {
		return errors.New("whisperx.hf_token is required for the pyannote VAD (or set HF_TOKEN)")
	}
	if c.Separation.TimeoutSeconds < 0 || c.WhisperX.TimeoutSeconds < 0 || c.Video.TimeoutSeconds < 0 {
		return errors.New("tool timeouts must not be negative")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	if !c.Correction.Enabled {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required when correction.enabled is true. Set OPENROUTER_API_KEY or edit %s (create with 'lyricsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

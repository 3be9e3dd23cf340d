package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLyrics()
	c.normalizeSubtitles()
	c.normalizeWhisperX()
	c.normalizeLLM()
	c.normalizeLogging()
	if c.Metrics.TextfilePath != "" {
		expanded, err := expandPath(c.Metrics.TextfilePath)
		if err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
		c.Metrics.TextfilePath = expanded
	}
	if bg := strings.TrimSpace(c.Video.Background); bg != "" {
		expanded, err := expandPath(bg)
		if err != nil {
			return fmt.Errorf("video.background: %w", err)
		}
		c.Video.Background = expanded
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, ""},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = f.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*f.value))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = expanded
	}
	return nil
}

func (c *Config) normalizeLyrics() {
	c.Lyrics.Source = strings.ToLower(strings.TrimSpace(c.Lyrics.Source))
	if c.Lyrics.Source == "" {
		c.Lyrics.Source = defaultLyricsSource
	}
	c.Lyrics.BaseURL = strings.TrimRight(strings.TrimSpace(c.Lyrics.BaseURL), "/")
	if c.Lyrics.BaseURL == "" {
		c.Lyrics.BaseURL = defaultLyricsBaseURL
	}
	c.Lyrics.UserAgent = strings.TrimSpace(c.Lyrics.UserAgent)
	if c.Lyrics.UserAgent == "" {
		c.Lyrics.UserAgent = defaultLyricsUserAgent
	}
	if c.Lyrics.TimeoutSeconds <= 0 {
		c.Lyrics.TimeoutSeconds = defaultLyricsTimeout
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Format = strings.ToLower(strings.TrimSpace(c.Subtitles.Format))
	if c.Subtitles.Format == "" {
		c.Subtitles.Format = defaultSubtitleFormat
	}
	c.Subtitles.Font = strings.TrimSpace(c.Subtitles.Font)
}

func (c *Config) normalizeWhisperX() {
	c.WhisperX.Binary = strings.TrimSpace(c.WhisperX.Binary)
	if c.WhisperX.Binary == "" {
		c.WhisperX.Binary = defaultWhisperXBinary
	}
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultWhisperXVAD
	}
	c.WhisperX.Language = strings.ToLower(strings.TrimSpace(c.WhisperX.Language))
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if c.WhisperX.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.WhisperX.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.WhisperX.HFToken = strings.TrimSpace(value)
		}
	}
	c.Separation.Binary = strings.TrimSpace(c.Separation.Binary)
	if c.Separation.Binary == "" {
		c.Separation.Binary = defaultDemucsBinary
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{"LYRICSYNC_LLM_API_KEY", "OPENROUTER_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

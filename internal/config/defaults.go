package config

import (
	"lyricsync/internal/align"
	"lyricsync/internal/repair"
	"lyricsync/internal/subtitles"
	"lyricsync/internal/transcript"
)

const (
	defaultConfigPath        = "~/.config/lyricsync/config.toml"
	defaultWorkDir           = "~/.local/share/lyricsync/work"
	defaultOutputDir         = "~/Videos/karaoke"
	defaultLogDir            = "~/.local/share/lyricsync/logs"
	defaultCacheDir          = "~/.cache/lyricsync"
	defaultLyricsSource      = "lrclib"
	defaultLyricsBaseURL     = "https://lrclib.net"
	defaultLyricsUserAgent   = "lyricsync/dev"
	defaultLyricsTimeout     = 15
	defaultSubtitleFormat    = "ass"
	defaultVideoWidth        = 1280
	defaultVideoHeight       = 720
	defaultVideoFPS          = 30
	defaultVideoColour       = "black"
	defaultVideoCodec        = "libx264"
	defaultAudioCodec        = "aac"
	defaultVideoTimeout      = 1800
	defaultDemucsBinary      = "demucs"
	defaultDemucsModel       = "htdemucs"
	defaultDemucsTimeout     = 1800
	defaultWhisperXBinary    = "whisperx"
	defaultWhisperXModel     = "large-v3"
	defaultWhisperXCompute   = "float16"
	defaultWhisperXBatchSize = 16
	defaultWhisperXVAD       = "silero"
	defaultWhisperXTimeout   = 1800
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/lyricsync/lyricsync"
	defaultLLMTitle          = "lyricsync lyric corrector"
	defaultLLMTimeout        = 60
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogMaxSizeMB      = 50
	defaultLogMaxBackups     = 5
	defaultLogMaxAgeDays     = 30
	defaultEarlyWindow       = 5.0
	defaultEarlyMinWords     = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	alignDefaults := align.DefaultConfig()
	repairDefaults := repair.DefaultConfig()
	ass := subtitles.DefaultASSOptions()
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir,
		},
		Alignment: Alignment{
			Threshold:   alignDefaults.Threshold,
			MatchWeight: alignDefaults.MatchWeight,
			GapOpen:     alignDefaults.GapOpen,
			GapExtend:   alignDefaults.GapExtend,
		},
		Repair: Repair{
			MinDuration: repairDefaults.MinDuration,
			MaxDuration: repairDefaults.MaxDuration,
		},
		Transcript: Transcript{
			UnwantedPhrases:    append([]string(nil), transcript.DefaultUnwantedPhrases...),
			DropHallucinations: true,
			EarlyWindow:        defaultEarlyWindow,
			EarlyMinWords:      defaultEarlyMinWords,
		},
		Lyrics: Lyrics{
			Source:         defaultLyricsSource,
			BaseURL:        defaultLyricsBaseURL,
			UserAgent:      defaultLyricsUserAgent,
			TimeoutSeconds: defaultLyricsTimeout,
			Cache:          true,
		},
		Subtitles: Subtitles{
			Format:          defaultSubtitleFormat,
			Font:            ass.Font,
			FontSize:        ass.FontSize,
			PrimaryColour:   ass.PrimaryColour,
			SecondaryColour: ass.SecondaryColour,
			OutlineColour:   ass.OutlineColour,
			Outline:         ass.Outline,
			TitleSeconds:    ass.TitleDuration,
			Sweep:           ass.Sweep,
		},
		Video: Video{
			Enabled:        true,
			Width:          defaultVideoWidth,
			Height:         defaultVideoHeight,
			FPS:            defaultVideoFPS,
			Colour:         defaultVideoColour,
			VideoCodec:     defaultVideoCodec,
			AudioCodec:     defaultAudioCodec,
			TimeoutSeconds: defaultVideoTimeout,
		},
		Separation: Separation{
			Enabled:        true,
			Binary:         defaultDemucsBinary,
			Model:          defaultDemucsModel,
			TimeoutSeconds: defaultDemucsTimeout,
		},
		WhisperX: WhisperX{
			Binary:         defaultWhisperXBinary,
			Model:          defaultWhisperXModel,
			ComputeType:    defaultWhisperXCompute,
			BatchSize:      defaultWhisperXBatchSize,
			VADMethod:      defaultWhisperXVAD,
			TimeoutSeconds: defaultWhisperXTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}

package subtitles

import (
	"fmt"
	"io"
	"strings"

	"lyricsync/internal/cue"
	"lyricsync/internal/fileutil"
)

// Format names a subtitle syntax.
type Format string

const (
	FormatSRT Format = "srt"
	FormatASS Format = "ass"
)

// ParseFormat accepts "srt" or "ass" in any case.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatSRT, FormatASS:
		return f, nil
	case "":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format %q (want srt or ass)", value)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Write serialises cues in format f.
func Write(w io.Writer, f Format, cues []cue.Cue, opts ASSOptions) error {
	switch f {
	case FormatASS:
		return WriteASS(w, cues, opts)
	case FormatSRT, "":
		return WriteSRT(w, cues)
	default:
		return fmt.Errorf("unsupported subtitle format %q", f)
	}
}

// WriteFile serialises cues to path, replacing it atomically.
func WriteFile(path string, f Format, cues []cue.Cue, opts ASSOptions) error {
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Write(w, f, cues, opts)
	})
	if err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return nil
}

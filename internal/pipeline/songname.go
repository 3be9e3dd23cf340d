package pipeline

import (
	"path/filepath"
	"regexp"
	"strings"

	"lyricsync/internal/textutil"
)

var (
	trackNumberPrefix = regexp.MustCompile(`^\d{1,3}\s*[._)]\s*`)
	trackNumberOnly   = regexp.MustCompile(`^\d{1,3}$`)
)

// ParseSongName splits a file name of the form "Artist - Title.ext".
// A leading track number ("03 - ", "07. ") is dropped. When no separator is
// present the whole stem is returned as the title.
func ParseSongName(path string) (artist, title string) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return parseStem(strings.ReplaceAll(stem, "_", " "))
}

func parseStem(stem string) (string, string) {
	stem = strings.TrimSpace(trackNumberPrefix.ReplaceAllString(strings.TrimSpace(stem), ""))
	for _, sep := range []string{" - ", " – ", " — "} {
		left, right, ok := strings.Cut(stem, sep)
		if !ok {
			continue
		}
		left = strings.TrimSpace(left)
		if trackNumberOnly.MatchString(left) {
			return parseStem(right)
		}
		return left, strings.TrimSpace(right)
	}
	return "", stem
}

// runName is the artifact base name for a song.
func runName(artist, title, songPath string) string {
	var name string
	switch {
	case artist != "" && title != "":
		name = artist + " - " + title
	case title != "":
		name = title
	default:
		base := filepath.Base(songPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return textutil.SanitizeFileName(name)
}

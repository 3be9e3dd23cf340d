package lrclib

import (
	"regexp"
	"strings"
)

var lrcTagPattern = regexp.MustCompile(`\[[^\]]*\]`)

// StripTimestamps removes LRC time and metadata tags, keeping line order.
// Lines that were only tags are dropped.
func StripTimestamps(synced string) string {
	lines := strings.Split(strings.ReplaceAll(synced, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		text := strings.TrimSpace(lrcTagPattern.ReplaceAllString(line, ""))
		if text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n")
}

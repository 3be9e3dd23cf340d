package lyrics

import (
	"errors"
	"regexp"
	"strings"

	"lyricsync/internal/cue"
	"lyricsync/internal/textutil"
)

// ErrEmptyReference is returned when no lyric lines survive normalization.
var ErrEmptyReference = errors.New("reference lyrics contain no lines")

var (
	// Whole-line bracket or brace annotations: [Chorus], {Instrumental}.
	bracketLinePattern = regexp.MustCompile(`^\[[^\]]*\]$|^\{[^}]*\}$`)
	// Parenthesised section labels and repeat markers: (Chorus), (x2), (Repeat).
	parenLabelPattern = regexp.MustCompile(`(?i)^\(\s*(pre-?chorus|chorus|verse|bridge|intro|outro|hook|refrain|interlude|instrumental|solo|repeat|x\s*\d+|\d+\s*x)\b[^)]*\)$`)
	// Bare section labels: "Chorus:", "Verse 2".
	sectionLabelPattern = regexp.MustCompile(`(?i)^(pre-?chorus|chorus|verse|bridge|intro|outro|hook|refrain|interlude)(\s*\d+)?\s*:?$`)
	// Inline square-bracket notes inside a sung line: "Oh yeah [x2]".
	inlineBracketPattern = regexp.MustCompile(`\s*\[[^\]]*\]`)
)

// Normalize splits raw lyric text into reference lines. Annotation and empty
// lines are dropped; order is preserved. Returns ErrEmptyReference when
// nothing remains.
func Normalize(raw string) ([]cue.ReferenceLine, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	var lines []cue.ReferenceLine
	for _, line := range strings.Split(raw, "\n") {
		text, ok := cleanLine(line)
		if !ok {
			continue
		}
		key := textutil.MatchKey(text)
		if key == "" {
			continue
		}
		lines = append(lines, cue.ReferenceLine{
			Index: len(lines),
			Text:  text,
			Key:   key,
			Words: strings.Fields(key),
		})
	}
	if len(lines) == 0 {
		return nil, ErrEmptyReference
	}
	return lines, nil
}

// IsAnnotation reports whether a trimmed line is a structural marker rather than sung text.
func IsAnnotation(line string) bool {
	line = strings.TrimSpace(line)
	return bracketLinePattern.MatchString(line) ||
		parenLabelPattern.MatchString(line) ||
		sectionLabelPattern.MatchString(line)
}

func cleanLine(line string) (string, bool) {
	text := strings.TrimSpace(line)
	if text == "" || IsAnnotation(text) {
		return "", false
	}
	text = strings.TrimSpace(inlineBracketPattern.ReplaceAllString(text, ""))
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", false
	}
	return text, true
}

// WordCount returns the total number of matching words across lines.
func WordCount(lines []cue.ReferenceLine) int {
	n := 0
	for _, l := range lines {
		n += len(l.Words)
	}
	return n
}

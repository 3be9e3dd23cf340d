package transcript

import (
	"strings"
	"unicode"

	"lyricsync/internal/textutil"
)

// Removal reasons reported by Filter.
const (
	ReasonUnwantedPhrase = "unwanted_phrase"
	ReasonHallucination  = "isolated_hallucination"
	ReasonMusicSymbols   = "music_symbols"
	ReasonEarlyNoise     = "early_noise"
	ReasonShortSegment   = "short_segment"
)

// FilterOptions tunes Filter. The zero value removes nothing.
type FilterOptions struct {
	// UnwantedPhrases drops any segment whose matching key contains one of them.
	UnwantedPhrases []string
	// DropHallucinations drops isolated stock phrases and music-symbol segments.
	DropHallucinations bool
	// EarlyWindow drops segments starting before it that have fewer than
	// EarlyMinWords words. Zero disables the check.
	EarlyWindow   float64
	EarlyMinWords int
	// MinDuration and MinWords drop segments shorter or sparser than these.
	MinDuration float64
	MinWords    int
}

// DefaultUnwantedPhrases are channel and subtitle credit lines recognisers
// pick up from training data.
var DefaultUnwantedPhrases = []string{
	"subtitles by",
	"please subscribe",
	"like and subscribe",
	"abone ol",
	"altyazı",
	"yorum yap",
	"beğen butonuna",
	"tıklamayı unutmayın",
}

// FilterRemoval records one segment dropped by Filter.
type FilterRemoval struct {
	Segment Segment
	Reason  string
}

// FilterResult holds the surviving segments and what was removed.
type FilterResult struct {
	Segments []Segment
	Removals []FilterRemoval
}

var hallucinationPhrases = map[string]bool{
	"thank you":              true,
	"thank you for watching": true,
	"thanks for watching":    true,
	"thanks for listening":   true,
	"please subscribe":       true,
	"see you next time":      true,
	"bye":                    true,
	"bye bye":                true,
}

const isolationGap = 10.0

// Filter removes recogniser noise from segments.
func Filter(segments []Segment, opts FilterOptions) FilterResult {
	unwanted := make([]string, 0, len(opts.UnwantedPhrases))
	for _, p := range opts.UnwantedPhrases {
		if key := textutil.MatchKey(p); key != "" {
			unwanted = append(unwanted, key)
		}
	}

	var result FilterResult
	for i, seg := range segments {
		if reason := removalReason(segments, i, opts, unwanted); reason != "" {
			result.Removals = append(result.Removals, FilterRemoval{Segment: seg, Reason: reason})
			continue
		}
		result.Segments = append(result.Segments, seg)
	}
	return result
}

func removalReason(segments []Segment, i int, opts FilterOptions, unwanted []string) string {
	seg := segments[i]
	key := textutil.MatchKey(segmentText(seg))
	padded := " " + key + " "
	for _, phrase := range unwanted {
		if strings.Contains(padded, " "+phrase+" ") {
			return ReasonUnwantedPhrase
		}
	}
	if opts.DropHallucinations && isolated(segments, i) {
		if hallucinationPhrases[key] {
			return ReasonHallucination
		}
		if isMusicOnly(segmentText(seg)) {
			return ReasonMusicSymbols
		}
	}
	words := seg.WordCount()
	if opts.EarlyWindow > 0 && seg.Start < opts.EarlyWindow && words < opts.EarlyMinWords {
		return ReasonEarlyNoise
	}
	if opts.MinDuration > 0 && seg.Duration() < opts.MinDuration {
		return ReasonShortSegment
	}
	if opts.MinWords > 0 && words < opts.MinWords {
		return ReasonShortSegment
	}
	return ""
}

func segmentText(seg Segment) string {
	if strings.TrimSpace(seg.Text) != "" || len(seg.Words) == 0 {
		return seg.Text
	}
	parts := make([]string, len(seg.Words))
	for i, w := range seg.Words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

func isolated(segments []Segment, i int) bool {
	before := segments[i].Start
	if i > 0 {
		before = segments[i].Start - segments[i-1].End
	}
	after := isolationGap
	if i < len(segments)-1 {
		after = segments[i+1].Start - segments[i].End
	}
	return before >= isolationGap && after >= isolationGap
}

// isMusicOnly reports whether text holds nothing but note symbols and spaces.
func isMusicOnly(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, r := range text {
		switch {
		case r == '¶', r == '♪', r == '♫', r == '*':
		case unicode.IsSpace(r):
		default:
			return false
		}
	}
	return true
}

package transcript

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"lyricsync/internal/cue"
	"lyricsync/internal/textutil"
)

// ErrEmptyTranscript is returned when the recogniser produced nothing usable.
var ErrEmptyTranscript = errors.New("transcript contains no timed words")

// Normalize flattens segments into word-level tokens ordered by start time.
// Tokens whose matching key is empty are dropped.
func Normalize(segments []Segment) ([]cue.TimedToken, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyTranscript
	}
	var tokens []cue.TimedToken
	for _, seg := range segments {
		tokens = append(tokens, segmentTokens(seg)...)
	}
	if len(tokens) == 0 {
		return nil, ErrEmptyTranscript
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Interval.Start < tokens[j].Interval.Start
	})
	return tokens, nil
}

type piece struct {
	text       string
	interval   cue.TimeInterval
	confidence float64
}

func segmentTokens(seg Segment) []cue.TimedToken {
	conf := clamp01(seg.Confidence)
	if conf == 0 {
		conf = 1
	}
	var pieces []piece
	if hasTimedWord(seg.Words) {
		pieces = wordPieces(seg, conf)
	} else {
		interval := cue.TimeInterval{Start: seg.Start, End: seg.End}
		if !interval.Valid() {
			return nil
		}
		words := strings.Fields(seg.Text)
		if len(words) == 0 {
			for _, w := range seg.Words {
				words = append(words, strings.Fields(w.Text)...)
			}
		}
		for i, span := range spread(interval, words) {
			pieces = append(pieces, piece{text: words[i], interval: span, confidence: conf})
		}
	}

	var tokens []cue.TimedToken
	for _, p := range pieces {
		tokens = append(tokens, splitKeys(p)...)
	}
	return tokens
}

// splitKeys turns one recognised word into one token per matching-key word,
// so "rock'n'roll" stays whole while "and/or" becomes two tokens.
func splitKeys(p piece) []cue.TimedToken {
	keys := textutil.Words(p.text)
	switch len(keys) {
	case 0:
		return nil
	case 1:
		return []cue.TimedToken{{Text: p.text, Key: keys[0], Interval: p.interval, Confidence: p.confidence}}
	}
	out := make([]cue.TimedToken, 0, len(keys))
	for i, span := range spread(p.interval, keys) {
		out = append(out, cue.TimedToken{Text: keys[i], Key: keys[i], Interval: span, Confidence: p.confidence})
	}
	return out
}

func hasTimedWord(words []Word) bool {
	for _, w := range words {
		if w.Timed {
			return true
		}
	}
	return false
}

// wordPieces keeps recogniser word timings and places untimed words inside
// the gap between their timed neighbours. When that gap is empty they share
// the interval of the nearest timed word instead.
func wordPieces(seg Segment, segConf float64) []piece {
	words := seg.Words
	out := make([]piece, len(words))
	for i := 0; i < len(words); {
		w := words[i]
		if w.Timed {
			out[i] = piece{text: w.Text, interval: cue.TimeInterval{Start: w.Start, End: w.End}, confidence: wordConfidence(w, segConf)}
			i++
			continue
		}
		j := i
		for j < len(words) && !words[j].Timed {
			j++
		}
		lo, hi := seg.Start, seg.End
		if i > 0 {
			lo = words[i-1].End
		}
		if j < len(words) {
			hi = words[j].Start
		}
		texts := make([]string, 0, j-i)
		for k := i; k < j; k++ {
			texts = append(texts, words[k].Text)
		}
		gap := cue.TimeInterval{Start: lo, End: hi}
		var spans []cue.TimeInterval
		if gap.Valid() {
			spans = spread(gap, texts)
		} else {
			neighbour := i - 1
			if neighbour < 0 {
				neighbour = j
			}
			shared := cue.TimeInterval{Start: words[neighbour].Start, End: words[neighbour].End}
			spans = make([]cue.TimeInterval, len(texts))
			for k := range spans {
				spans[k] = shared
			}
		}
		for k := i; k < j; k++ {
			out[k] = piece{text: words[k].Text, interval: spans[k-i], confidence: wordConfidence(words[k], segConf)}
		}
		i = j
	}
	return out
}

func wordConfidence(w Word, segConf float64) float64 {
	if w.Score >= 0 && w.Timed {
		return clamp01(w.Score)
	}
	return segConf
}

// spread divides interval among words in proportion to their rune length.
// The last span ends exactly at interval.End.
func spread(interval cue.TimeInterval, words []string) []cue.TimeInterval {
	if len(words) == 0 {
		return nil
	}
	weights := make([]float64, len(words))
	total := 0.0
	for i, w := range words {
		n := utf8.RuneCountInString(w)
		if n == 0 {
			n = 1
		}
		weights[i] = float64(n)
		total += weights[i]
	}
	out := make([]cue.TimeInterval, len(words))
	cursor := interval.Start
	acc := 0.0
	for i := range words {
		acc += weights[i]
		end := interval.Start + interval.Duration()*acc/total
		if i == len(words)-1 {
			end = interval.End
		}
		out[i] = cue.TimeInterval{Start: cursor, End: end}
		cursor = end
	}
	return out
}

// Text joins the text of all segments, used for fingerprinting lyric candidates.
func Text(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Word is one recognised word. Timed is false when the recogniser could not
// place the word (WhisperX leaves numerals and symbols unaligned).
type Word struct {
	Text  string
	Start float64
	End   float64
	Score float64
	Timed bool
}

// Segment is one recognised phrase. Words is empty for phrase-level output.
// A zero Confidence is read as unknown.
type Segment struct {
	Start      float64
	End        float64
	Text       string
	Words      []Word
	Confidence float64
}

// WordCount returns the number of whitespace-separated words in the segment.
func (s Segment) WordCount() int {
	if len(s.Words) > 0 {
		return len(s.Words)
	}
	return len(strings.Fields(s.Text))
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

type whisperWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score"`
}

type whisperSegment struct {
	Text       string        `json:"text"`
	Start      float64       `json:"start"`
	End        float64       `json:"end"`
	Words      []whisperWord `json:"words"`
	Confidence *float64      `json:"confidence"`
	AvgLogProb *float64      `json:"avg_logprob"`
}

type whisperPayload struct {
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

// LoadWhisperJSON reads a WhisperX or faster-whisper JSON transcript.
func LoadWhisperJSON(path string) ([]Segment, error) {
	if strings.TrimSpace(path) == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	segments, err := DecodeWhisperJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segments, nil
}

// DecodeWhisperJSON parses a {"segments": [...]} document.
func DecodeWhisperJSON(r io.Reader) ([]Segment, error) {
	var payload whisperPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Segments))
	for _, raw := range payload.Segments {
		seg := Segment{
			Start:      raw.Start,
			End:        raw.End,
			Text:       strings.TrimSpace(raw.Text),
			Confidence: segmentConfidence(raw),
		}
		for _, w := range raw.Words {
			word := Word{Text: strings.TrimSpace(w.Word), Score: -1}
			if w.Start != nil && w.End != nil && *w.End > *w.Start && *w.Start >= 0 {
				word.Start, word.End, word.Timed = *w.Start, *w.End, true
			}
			if w.Score != nil {
				word.Score = clamp01(*w.Score)
			}
			seg.Words = append(seg.Words, word)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func segmentConfidence(raw whisperSegment) float64 {
	switch {
	case raw.Confidence != nil:
		return clamp01(*raw.Confidence)
	case raw.AvgLogProb != nil:
		return clamp01(math.Exp(*raw.AvgLogProb))
	default:
		return 1
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

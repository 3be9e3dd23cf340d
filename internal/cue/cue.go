package cue

import (
	"fmt"
	"strings"
)

// TimeInterval is a half-open span of song time in seconds.
type TimeInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (t TimeInterval) Duration() float64 {
	return t.End - t.Start
}

// Valid reports whether the interval has a non-negative start and positive length.
func (t TimeInterval) Valid() bool {
	return t.Start >= 0 && t.End > t.Start
}

// Overlaps reports whether two intervals share any time.
func (t TimeInterval) Overlaps(other TimeInterval) bool {
	return t.Start < other.End && other.Start < t.End
}

func (t TimeInterval) String() string {
	return fmt.Sprintf("%.3f-%.3f", t.Start, t.End)
}

// TimedToken is one recognised word with its timing and recogniser confidence.
type TimedToken struct {
	Text       string       `json:"text"`
	Key        string       `json:"key"`
	Interval   TimeInterval `json:"interval"`
	Confidence float64      `json:"confidence"`
}

// ReferenceLine is one untimed line of authoritative lyric text.
type ReferenceLine struct {
	Index int      `json:"index"`
	Text  string   `json:"text"`
	Key   string   `json:"key"`
	Words []string `json:"words"`
}

// AlignmentEdge binds a reference line to the transcript tokens matched to
// its words. Tokens holds token indices in transcript order; Candidate is nil
// when no word of the line found a match.
type AlignmentEdge struct {
	Line      int           `json:"line"`
	Tokens    []int         `json:"tokens,omitempty"`
	Matched   int           `json:"matched"`
	Words     int           `json:"words"`
	Score     float64       `json:"score"`
	Candidate *TimeInterval `json:"candidate,omitempty"`
}

// Cue is a final timed subtitle unit.
type Cue struct {
	Ordinal  int          `json:"ordinal"`
	Interval TimeInterval `json:"interval"`
	Text     string       `json:"text"`
}

// Start is shorthand for c.Interval.Start.
func (c Cue) Start() float64 { return c.Interval.Start }

// End is shorthand for c.Interval.End.
func (c Cue) End() float64 { return c.Interval.End }

// Texts returns the display text of every cue in order.
func Texts(cues []Cue) []string {
	out := make([]string, len(cues))
	for i, c := range cues {
		out[i] = c.Text
	}
	return out
}

// Text joins all display texts with newlines.
func Text(cues []Cue) string {
	return strings.Join(Texts(cues), "\n")
}

package align

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"lyricsync/internal/cue"
	"lyricsync/internal/textutil"
)

func refLines(texts ...string) []cue.ReferenceLine {
	lines := make([]cue.ReferenceLine, len(texts))
	for i, text := range texts {
		key := textutil.MatchKey(text)
		lines[i] = cue.ReferenceLine{Index: i, Text: text, Key: key, Words: strings.Fields(key)}
	}
	return lines
}

type tok struct {
	word       string
	start, end float64
}

func timed(toks ...tok) []cue.TimedToken {
	out := make([]cue.TimedToken, len(toks))
	for i, t := range toks {
		out[i] = cue.TimedToken{
			Text:       t.word,
			Key:        textutil.MatchKey(t.word),
			Interval:   cue.TimeInterval{Start: t.start, End: t.end},
			Confidence: 1,
		}
	}
	return out
}

func candidate(t *testing.T, edge cue.AlignmentEdge) cue.TimeInterval {
	t.Helper()
	if edge.Candidate == nil {
		t.Fatalf("line %d has no candidate", edge.Line)
	}
	return *edge.Candidate
}

func TestAlignExactMatch(t *testing.T) {
	res := Align(
		refLines("hello world", "goodbye moon"),
		timed(tok{"hello", 0, 0.5}, tok{"world", 0.5, 1.0}, tok{"goodbye", 2.0, 2.4}, tok{"moon", 2.4, 2.9}),
		DefaultConfig(),
	)
	if got := candidate(t, res.Edges[0]); got != (cue.TimeInterval{Start: 0, End: 1}) {
		t.Errorf("line 0 candidate = %v", got)
	}
	if got := candidate(t, res.Edges[1]); got != (cue.TimeInterval{Start: 2, End: 2.9}) {
		t.Errorf("line 1 candidate = %v", got)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %v", res.Diagnostics)
	}
	if res.Edges[1].Score != 1 || res.Edges[1].Matched != 2 {
		t.Errorf("line 1 edge = %+v", res.Edges[1])
	}
	if res.Coverage() != 1 {
		t.Errorf("coverage = %v", res.Coverage())
	}
}

func TestAlignDuplicateWordBindsEarliestOccurrence(t *testing.T) {
	res := Align(
		refLines("hey", "you there"),
		timed(tok{"hey", 0, 0.5}, tok{"hey", 2, 2.5}, tok{"you", 3, 3.5}, tok{"there", 3.5, 4}),
		DefaultConfig(),
	)
	if !reflect.DeepEqual(res.Edges[0].Tokens, []int{0}) {
		t.Fatalf("line 0 tokens = %v, want [0]", res.Edges[0].Tokens)
	}
	if got := candidate(t, res.Edges[1]); got != (cue.TimeInterval{Start: 3, End: 4}) {
		t.Fatalf("line 1 candidate = %v", got)
	}
}

func TestAlignRepeatedChorusStaysInOrder(t *testing.T) {
	res := Align(
		refLines("oh no", "something else", "oh no"),
		timed(tok{"oh", 0, 0.4}, tok{"no", 0.4, 1}, tok{"something", 2, 2.6}, tok{"else", 2.6, 3}, tok{"oh", 5, 5.4}, tok{"no", 5.4, 6}),
		DefaultConfig(),
	)
	want := []cue.TimeInterval{{Start: 0, End: 1}, {Start: 2, End: 3}, {Start: 5, End: 6}}
	for i, w := range want {
		if got := candidate(t, res.Edges[i]); got != w {
			t.Errorf("line %d candidate = %v, want %v", i, got, w)
		}
	}
}

func TestAlignRejectsMatchStartingBeforePrevious(t *testing.T) {
	res := Align(
		refLines("alpha beta gamma"),
		timed(tok{"alpha", 0, 1}, tok{"beta", 5, 6}, tok{"gamma", 2, 3}),
		DefaultConfig(),
	)
	if res.Words[2].Matched() {
		t.Fatalf("gamma should be unbound, got token %d", res.Words[2].Token)
	}
	edge := res.Edges[0]
	if edge.Matched != 2 {
		t.Fatalf("matched = %d, want 2", edge.Matched)
	}
	if got := candidate(t, edge); got != (cue.TimeInterval{Start: 0, End: 6}) {
		t.Fatalf("candidate = %v", got)
	}
}

func TestAlignSkipsTranscriptNoise(t *testing.T) {
	res := Align(
		refLines("hello world"),
		timed(tok{"uh", 0, 0.5}, tok{"hello", 1, 1.5}, tok{"um", 1.5, 2}, tok{"world", 2, 2.5}),
		DefaultConfig(),
	)
	edge := res.Edges[0]
	if got := candidate(t, edge); got != (cue.TimeInterval{Start: 1, End: 2.5}) {
		t.Fatalf("candidate = %v", got)
	}
	if !reflect.DeepEqual(edge.Tokens, []int{1, 2, 3}) {
		t.Fatalf("tokens = %v, want contiguous span [1 2 3]", edge.Tokens)
	}
}

func TestAlignFuzzyMatches(t *testing.T) {
	res := Align(refLines("goodbye moon"), timed(tok{"goodby", 1, 1.5}, tok{"mon", 1.5, 2}), DefaultConfig())
	edge := res.Edges[0]
	if edge.Matched != 2 {
		t.Fatalf("matched = %d", edge.Matched)
	}
	want := (1 - 1.0/7 + 1 - 1.0/4) / 2
	if math.Abs(edge.Score-want) > 1e-9 {
		t.Fatalf("score = %v, want %v", edge.Score, want)
	}
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics %v", res.Diagnostics)
	}
}

func TestAlignUnmatchedLineIsLowConfidence(t *testing.T) {
	res := Align(
		refLines("hello world", "completely absent"),
		timed(tok{"hello", 0, 0.5}, tok{"world", 0.5, 1}),
		DefaultConfig(),
	)
	if res.Edges[1].Candidate != nil {
		t.Fatalf("unmatched line has candidate %v", res.Edges[1].Candidate)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != cue.KindLowConfidence || res.Diagnostics[0].Line != 1 {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
}

func TestAlignLowScoreDropsOrKeepsCandidate(t *testing.T) {
	lines := refLines("hello beautiful wide world")
	tokens := timed(tok{"hello", 0, 0.5})

	res := Align(lines, tokens, DefaultConfig())
	if res.Edges[0].Candidate != nil {
		t.Fatalf("low-confidence candidate should be dropped by default, got %v", res.Edges[0].Candidate)
	}
	if res.Edges[0].Matched != 1 {
		t.Fatalf("matched = %d, want 1", res.Edges[0].Matched)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != cue.KindLowConfidence || res.Diagnostics[0].Score != 0.25 {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}

	cfg := DefaultConfig()
	cfg.KeepLowConfidence = true
	res = Align(lines, tokens, cfg)
	if res.Edges[0].Candidate == nil || res.Edges[0].Candidate.End != 0.5 {
		t.Fatalf("candidate should be kept, got %v", res.Edges[0].Candidate)
	}
}

func TestAlignEmptyTokens(t *testing.T) {
	res := Align(refLines("a line"), nil, DefaultConfig())
	if len(res.Edges) != 1 || res.Edges[0].Candidate != nil || res.MatchedWords() != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAlignDeterministic(t *testing.T) {
	lines := refLines("la la la", "la la")
	tokens := timed(tok{"la", 0, 1}, tok{"la", 1, 2}, tok{"la", 3, 4}, tok{"la", 5, 6})
	first := Align(lines, tokens, DefaultConfig())
	for i := 0; i < 5; i++ {
		if again := Align(lines, tokens, DefaultConfig()); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.Threshold = 0
	bad.GapExtend = 5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

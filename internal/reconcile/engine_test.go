package reconcile

import (
	"bytes"
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"lyricsync/internal/cue"
	"lyricsync/internal/logging"
	"lyricsync/internal/lyrics"
	"lyricsync/internal/subtitles"
	"lyricsync/internal/transcript"
)

type w struct {
	text       string
	start, end float64
}

// wordSegment builds one segment with word-level timings.
func wordSegment(words ...w) transcript.Segment {
	seg := transcript.Segment{Start: words[0].start, End: words[len(words)-1].end}
	for _, x := range words {
		seg.Words = append(seg.Words, transcript.Word{Text: x.text, Start: x.start, End: x.end, Score: 1, Timed: true})
		if seg.Text != "" {
			seg.Text += " "
		}
		seg.Text += x.text
	}
	return seg
}

func newEngine() *Engine {
	return New(DefaultConfig(), logging.NewNop())
}

func assertCue(t *testing.T, c cue.Cue, start, end float64, text string) {
	t.Helper()
	if math.Abs(c.Start()-start) > 1e-9 || math.Abs(c.End()-end) > 1e-9 || c.Text != text {
		t.Errorf("cue %d = (%v, %v, %q), want (%v, %v, %q)", c.Ordinal, c.Start(), c.End(), c.Text, start, end, text)
	}
}

func TestRunMatchesWholeLines(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "hello world\ngoodbye moon",
		Segments: []transcript.Segment{
			wordSegment(w{"hello", 0, 0.5}, w{"world", 0.5, 1.0}),
			wordSegment(w{"goodbye", 2.0, 2.4}, w{"moon", 2.4, 2.9}),
		},
		Duration: 3,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Cues) != 2 {
		t.Fatalf("got %d cues", len(res.Cues))
	}
	assertCue(t, res.Cues[0], 0, 1, "hello world")
	assertCue(t, res.Cues[1], 2, 2.9, "goodbye moon")
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %v", res.Diagnostics)
	}
}

func TestRunInterpolatesUnmatchedLine(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "line one\nline two\nline three",
		Segments: []transcript.Segment{
			wordSegment(w{"line", 0, 0.5}, w{"one", 0.5, 1.0}),
			wordSegment(w{"line", 4.0, 4.5}, w{"three", 4.5, 5.0}),
		},
		Duration: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertCue(t, res.Cues[0], 0, 1, "line one")
	assertCue(t, res.Cues[1], 1, 4, "line two")
	assertCue(t, res.Cues[2], 4, 5, "line three")
	counts := cue.CountByKind(res.Diagnostics)
	if counts[cue.KindInterpolated] != 1 || counts[cue.KindLowConfidence] != 1 {
		t.Errorf("diagnostics = %v", res.Diagnostics)
	}
}

func TestRunInterpolatesLowConfidenceLine(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "hello there\nhello beautiful wide world\ngoodbye now",
		Segments: []transcript.Segment{
			wordSegment(w{"hello", 0, 0.5}, w{"there", 0.5, 1.0}),
			wordSegment(w{"hello", 1.5, 2.0}),
			wordSegment(w{"goodbye", 4.0, 4.5}, w{"now", 4.5, 5.0}),
		},
		Duration: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertCue(t, res.Cues[1], 1, 4, "hello beautiful wide world")
	counts := cue.CountByKind(res.Diagnostics)
	if counts[cue.KindLowConfidence] != 1 || counts[cue.KindInterpolated] != 1 {
		t.Errorf("diagnostics = %v", res.Diagnostics)
	}
}

func TestRunEmptyReferenceFailsFirst(t *testing.T) {
	_, err := newEngine().Run(context.Background(), Input{Reference: "", Segments: nil, Duration: 10})
	if !errors.Is(err, lyrics.ErrEmptyReference) {
		t.Fatalf("err = %v, want ErrEmptyReference", err)
	}
}

func TestRunEmptyTranscript(t *testing.T) {
	_, err := newEngine().Run(context.Background(), Input{Reference: "la la", Duration: 10})
	if !errors.Is(err, transcript.ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
}

func TestRunClampsOverlappingCandidates(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "first line\nsecond verse",
		Segments: []transcript.Segment{
			wordSegment(w{"first", 2.0, 2.5}, w{"line", 2.5, 3.0}, w{"second", 2.5, 3.0}, w{"verse", 3.0, 3.5}),
		},
		Duration: 10,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertCue(t, res.Cues[0], 2, 3, "first line")
	assertCue(t, res.Cues[1], 3, 3.5, "second verse")
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != cue.KindClampedStart {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
}

func TestRunBindsDuplicateWordInOrder(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "hey\nyou there",
		Segments: []transcript.Segment{
			wordSegment(w{"hey", 0, 0.5}),
			wordSegment(w{"hey", 2, 2.5}, w{"you", 3, 3.5}, w{"there", 3.5, 4}),
		},
		Duration: 5,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertCue(t, res.Cues[0], 0, 0.5, "hey")
	assertCue(t, res.Cues[1], 3, 4, "you there")
}

func TestRunPreservesReferenceText(t *testing.T) {
	reference := "[Verse]\nWe'll sing, all night!\n\n(Chorus)\nOoh, la-la\nNever heard this one"
	res, err := newEngine().Run(context.Background(), Input{
		Reference: reference,
		Segments: []transcript.Segment{
			{Start: 1, End: 3, Text: "well sing all night"},
			{Start: 4, End: 6, Text: "ooh la la"},
		},
		Duration: 12,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"We'll sing, all night!", "Ooh, la-la", "Never heard this one"}
	if got := cue.Texts(res.Cues); !reflect.DeepEqual(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}
	if err := cue.Validate(res.Cues, 12); err != nil {
		t.Fatalf("invalid cues: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	in := Input{
		Reference: "la la la\nsing along\nla la\nthe end",
		Segments: []transcript.Segment{
			{Start: 0.5, End: 2, Text: "la la la"},
			{Start: 2.2, End: 3.9, Text: "sing a long"},
			{Start: 6, End: 7, Text: "la la the"},
			{Start: 7, End: 9.5, Text: "end"},
		},
		Duration: 9,
	}
	engine := newEngine()
	first, err := engine.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := subtitles.RenderSRT(first.Cues)
	for i := 0; i < 3; i++ {
		again, err := engine.Run(context.Background(), in)
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		if got := subtitles.RenderSRT(again.Cues); !bytes.Equal(got, want) {
			t.Fatalf("run %d output differs:\n%s\nvs\n%s", i, got, want)
		}
	}
	if err := cue.Validate(first.Cues, in.Duration); err != nil {
		t.Fatalf("invalid cues: %v", err)
	}
}

func TestRunAppliesFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Filter = transcript.FilterOptions{UnwantedPhrases: []string{"subscribe"}}
	res, err := New(cfg, nil).Run(context.Background(), Input{
		Reference: "hold me close",
		Segments: []transcript.Segment{
			{Start: 0, End: 1, Text: "please subscribe"},
			{Start: 2, End: 3, Text: "hold me close"},
		},
		Duration: 4,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Removals) != 1 {
		t.Fatalf("removals = %+v", res.Removals)
	}
	assertCue(t, res.Cues[0], 2, 3, "hold me close")
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newEngine().Run(ctx, Input{Reference: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestTranscriptOnly(t *testing.T) {
	segments := []transcript.Segment{
		{Start: 0, End: 2, Text: " hello  there "},
		{Start: 1.5, End: 3, Text: "overlapping"},
		{Start: 4, End: 5, Text: "♪"},
	}
	res, err := newEngine().TranscriptOnly(context.Background(), segments, 10)
	if err != nil {
		t.Fatalf("TranscriptOnly: %v", err)
	}
	if len(res.Cues) != 2 {
		t.Fatalf("got %d cues", len(res.Cues))
	}
	assertCue(t, res.Cues[0], 0, 2, "hello there")
	assertCue(t, res.Cues[1], 2, 3, "overlapping")
	if res.Diagnostics[0].Kind != cue.KindTranscriptOnly {
		t.Fatalf("diagnostics = %v", res.Diagnostics)
	}
	if _, err := newEngine().TranscriptOnly(context.Background(), nil, 10); !errors.Is(err, transcript.ErrEmptyTranscript) {
		t.Fatalf("empty: %v", err)
	}
}

func TestRunDerivesDurationFromTranscript(t *testing.T) {
	res, err := newEngine().Run(context.Background(), Input{
		Reference: "nothing matches here",
		Segments:  []transcript.Segment{{Start: 0, End: 4, Text: "completely different words"}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Duration != 4 {
		t.Fatalf("duration = %v, want 4", res.Duration)
	}
	assertCue(t, res.Cues[0], 0, 4, "nothing matches here")
}

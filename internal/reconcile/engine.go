package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"lyricsync/internal/align"
	"lyricsync/internal/cue"
	"lyricsync/internal/logging"
	"lyricsync/internal/lyrics"
	"lyricsync/internal/repair"
	"lyricsync/internal/textutil"
	"lyricsync/internal/transcript"
)

// Config bundles the explicit tunables of every stage.
type Config struct {
	Align  align.Config
	Repair repair.Config
	Filter transcript.FilterOptions
}

// DefaultConfig returns stage defaults with transcript filtering off.
func DefaultConfig() Config {
	return Config{
		Align:  align.DefaultConfig(),
		Repair: repair.DefaultConfig(),
	}
}

// Validate checks every stage config.
func (c Config) Validate() error {
	return errors.Join(c.Align.Validate(), c.Repair.Validate())
}

// Input is one song's worth of engine input.
type Input struct {
	Reference string
	Segments  []transcript.Segment
	// Duration is the track length in seconds; zero derives it from the transcript.
	Duration float64
}

// Result is the engine output plus the intermediate products callers may
// want to inspect.
type Result struct {
	Cues        []cue.Cue
	Diagnostics []cue.Diagnostic
	Edges       []cue.AlignmentEdge
	Lines       []cue.ReferenceLine
	Tokens      []cue.TimedToken
	Words       []align.WordMatch
	Removals    []transcript.FilterRemoval
	Duration    float64
}

// Engine reconciles reference lyrics against a timed transcript.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an Engine. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logging.NewComponentLogger(logger, "reconcile")}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run reconciles one song. It fails with lyrics.ErrEmptyReference before any
// alignment when the reference has no lines, and with
// transcript.ErrEmptyTranscript when the recogniser produced no words.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := e.cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("engine config: %w", err)
	}

	lines, err := lyrics.Normalize(in.Reference)
	if err != nil {
		return Result{}, err
	}

	segments := in.Segments
	var removals []transcript.FilterRemoval
	if filtering(e.cfg.Filter) {
		filtered := transcript.Filter(segments, e.cfg.Filter)
		segments, removals = filtered.Segments, filtered.Removals
		for _, r := range removals {
			e.logger.Debug("transcript segment filtered",
				logging.String("reason", r.Reason),
				logging.Float64("start", r.Segment.Start),
				logging.String("text", r.Segment.Text),
			)
		}
	}
	tokens, err := transcript.Normalize(segments)
	if err != nil {
		return Result{}, err
	}

	duration := in.Duration
	if duration <= 0 {
		for _, t := range tokens {
			duration = max(duration, t.Interval.End)
		}
	}

	aligned := align.Align(lines, tokens, e.cfg.Align)
	cues, repairs, err := repair.Repair(lines, aligned.Edges, duration, e.cfg.Repair)
	if err != nil {
		return Result{}, fmt.Errorf("repair: %w", err)
	}

	diags := append(append([]cue.Diagnostic(nil), aligned.Diagnostics...), repairs...)
	sort.SliceStable(diags, func(i, j int) bool { return diags[i].Line < diags[j].Line })

	res := Result{
		Cues:        cues,
		Diagnostics: diags,
		Edges:       aligned.Edges,
		Lines:       lines,
		Tokens:      tokens,
		Words:       aligned.Words,
		Removals:    removals,
		Duration:    duration,
	}
	e.logSummary(res, aligned.Coverage())
	return res, nil
}

func filtering(opts transcript.FilterOptions) bool {
	return len(opts.UnwantedPhrases) > 0 || opts.DropHallucinations ||
		opts.EarlyWindow > 0 || opts.MinDuration > 0 || opts.MinWords > 0
}

func (e *Engine) logSummary(res Result, coverage float64) {
	counts := cue.CountByKind(res.Diagnostics)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "reconcile_complete"),
		logging.Int("lines", len(res.Lines)),
		logging.Int("tokens", len(res.Tokens)),
		logging.Int("cues", len(res.Cues)),
		logging.Float64("word_coverage", coverage),
		logging.Int("low_confidence", counts[cue.KindLowConfidence]),
		logging.Int("interpolated", counts[cue.KindInterpolated]),
		logging.Int("filtered_segments", len(res.Removals)),
	}
	if len(res.Lines) > 0 && counts[cue.KindLowConfidence]*2 > len(res.Lines) {
		logging.WarnWithContext(e.logger, "most lyric lines matched poorly", "reconcile_low_coverage",
			append(attrs,
				logging.String(logging.FieldErrorHint, "check that the lyrics belong to this recording"),
				logging.String(logging.FieldImpact, "subtitle timing is mostly interpolated"),
			)...,
		)
		return
	}
	e.logger.Info("lyrics reconciled", logging.Args(attrs...)...)
}

// TranscriptOnly builds cues straight from transcript segments when no
// reference lyrics are available. Segment text is kept as-is and timing is
// repaired for ordering and bounds only.
func (e *Engine) TranscriptOnly(ctx context.Context, segments []transcript.Segment, duration float64) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	var lines []cue.ReferenceLine
	var edges []cue.AlignmentEdge
	for _, seg := range segments {
		text := strings.Join(strings.Fields(seg.Text), " ")
		key := textutil.MatchKey(text)
		if key == "" {
			continue
		}
		idx := len(lines)
		lines = append(lines, cue.ReferenceLine{Index: idx, Text: text, Key: key, Words: strings.Fields(key)})
		edge := cue.AlignmentEdge{Line: idx, Words: len(lines[idx].Words)}
		if seg.End > seg.Start && seg.Start >= 0 {
			edge.Candidate = &cue.TimeInterval{Start: seg.Start, End: seg.End}
		}
		edges = append(edges, edge)
	}
	if len(lines) == 0 {
		return Result{}, transcript.ErrEmptyTranscript
	}

	cues, repairs, err := repair.Repair(lines, edges, duration, e.cfg.Repair)
	if err != nil {
		return Result{}, fmt.Errorf("repair: %w", err)
	}
	diags := append([]cue.Diagnostic{{
		Kind:    cue.KindTranscriptOnly,
		Line:    -1,
		Message: "reference lyrics unavailable; cues use transcript text",
	}}, repairs...)

	res := Result{
		Cues:        cues,
		Diagnostics: diags,
		Edges:       edges,
		Lines:       lines,
		Duration:    cues[len(cues)-1].End(),
	}
	if duration > 0 {
		res.Duration = duration
	}
	logging.WarnWithContext(e.logger, "using transcript text without reference lyrics", "reconcile_transcript_only",
		logging.Int("cues", len(cues)),
		logging.String(logging.FieldErrorHint, "supply a lyrics file or check the artist and title"),
		logging.String(logging.FieldImpact, "subtitles may contain recognition errors"),
	)
	return res, nil
}

package repair

import (
	"errors"
	"fmt"
	"sort"

	"lyricsync/internal/cue"
	"lyricsync/internal/lyrics"
	"lyricsync/internal/textutil"
)

// ErrNoDuration is returned when no track duration was supplied and no
// candidate exists to derive one from.
var ErrNoDuration = errors.New("track duration unknown")

type state struct {
	cfg      Config
	duration float64
	lines    []cue.ReferenceLine
	spans    []cue.TimeInterval
	accepted []bool
	diags    []cue.Diagnostic
	noted    map[noteKey]bool
}

type noteKey struct {
	line int
	kind cue.DiagnosticKind
}

// Repair builds the final cue sequence. edges is indexed by line; missing
// entries count as unmatched. A trackDuration of zero or less is replaced by
// the latest candidate end.
func Repair(lines []cue.ReferenceLine, edges []cue.AlignmentEdge, trackDuration float64, cfg Config) ([]cue.Cue, []cue.Diagnostic, error) {
	if len(lines) == 0 {
		return nil, nil, lyrics.ErrEmptyReference
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("repair config: %w", err)
	}
	s := &state{
		cfg:      cfg,
		duration: trackDuration,
		lines:    lines,
		spans:    make([]cue.TimeInterval, len(lines)),
		accepted: make([]bool, len(lines)),
		noted:    make(map[noteKey]bool),
	}
	for _, e := range edges {
		if e.Line >= 0 && e.Line < len(lines) && e.Candidate != nil {
			s.spans[e.Line] = *e.Candidate
			s.accepted[e.Line] = true
		}
	}
	if s.duration <= 0 {
		for i, ok := range s.accepted {
			if ok && s.spans[i].End > s.duration {
				s.duration = s.spans[i].End
			}
		}
		if s.duration <= 0 {
			return nil, nil, ErrNoDuration
		}
	}

	s.repairAccepted()
	s.interpolate()
	s.settle()
	s.squeezeTail()

	cues := make([]cue.Cue, len(lines))
	for i, line := range lines {
		cues[i] = cue.Cue{Ordinal: i + 1, Interval: s.spans[i], Text: line.Text}
	}
	if err := cue.Validate(cues, s.duration); err != nil {
		return nil, nil, fmt.Errorf("repair produced invalid cues: %w", err)
	}
	sort.SliceStable(s.diags, func(i, j int) bool { return s.diags[i].Line < s.diags[j].Line })
	return cues, s.diags, nil
}

func (s *state) note(line int, kind cue.DiagnosticKind, format string, args ...any) {
	key := noteKey{line: line, kind: kind}
	if s.noted[key] {
		return
	}
	s.noted[key] = true
	s.diags = append(s.diags, cue.Diagnostic{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)})
}

// repairAccepted walks lines with a candidate and makes them monotonic.
func (s *state) repairAccepted() {
	prevEnd := 0.0
	for i := range s.lines {
		if !s.accepted[i] {
			continue
		}
		span := s.spans[i]
		if span.Start < 0 {
			s.note(i, cue.KindClampedBounds, "start %.3f moved to 0", span.Start)
			span.Start = 0
		}
		if span.Start < prevEnd {
			s.note(i, cue.KindClampedStart, "start %.3f moved to previous end %.3f", span.Start, prevEnd)
			span.Start = prevEnd
		}
		span = s.floorAndCap(i, span)
		s.spans[i] = span
		prevEnd = span.End
	}
}

func (s *state) floorAndCap(i int, span cue.TimeInterval) cue.TimeInterval {
	if span.End <= span.Start {
		s.note(i, cue.KindExtendedEnd, "end %.3f extended to %.3f", span.End, span.Start+s.cfg.MinDuration)
		span.End = span.Start + s.cfg.MinDuration
	}
	if s.cfg.MaxDuration > 0 && span.Duration() > s.cfg.MaxDuration {
		s.note(i, cue.KindTrimmedEnd, "length %.3f trimmed to %.3f", span.Duration(), s.cfg.MaxDuration)
		span.End = span.Start + s.cfg.MaxDuration
	}
	return span
}

// interpolate times each run of unaccepted lines inside the gap between its
// accepted neighbours, weighted by estimated syllables.
func (s *state) interpolate() {
	for i := 0; i < len(s.lines); {
		if s.accepted[i] {
			i++
			continue
		}
		j := i
		for j < len(s.lines) && !s.accepted[j] {
			j++
		}
		lo, hi := 0.0, s.duration
		if i > 0 {
			lo = s.spans[i-1].End
		}
		if j < len(s.lines) {
			hi = s.spans[j].Start
		}
		if hi <= lo {
			// No room: lay the run out at the floor and let settle push the rest.
			hi = lo + float64(j-i)*s.cfg.MinDuration
		}

		weights := make([]float64, j-i)
		total := 0.0
		for k := i; k < j; k++ {
			w := 0
			for _, word := range s.lines[k].Words {
				w += textutil.VowelGroups(word)
			}
			weights[k-i] = float64(max(w, 1))
			total += weights[k-i]
		}
		cursor, acc := lo, 0.0
		for k := i; k < j; k++ {
			acc += weights[k-i]
			end := lo + (hi-lo)*acc/total
			if k == j-1 {
				end = hi
			}
			s.spans[k] = cue.TimeInterval{Start: cursor, End: end}
			s.note(k, cue.KindInterpolated, "timed between neighbours at %.3f-%.3f", lo, hi)
			cursor = end
		}
		i = j
	}
}

// settle enforces ordering across all lines after interpolation.
func (s *state) settle() {
	prevEnd := 0.0
	for i := range s.spans {
		span := s.spans[i]
		if span.Start < prevEnd {
			s.note(i, cue.KindClampedStart, "start %.3f moved to previous end %.3f", span.Start, prevEnd)
			span.Start = prevEnd
		}
		span = s.floorAndCap(i, span)
		s.spans[i] = span
		prevEnd = span.End
	}
}

// squeezeTail rescales the trailing cues linearly so the last one ends at
// the track duration. It reaches back far enough that every squeezed cue
// keeps at least half the minimum duration when possible.
func (s *state) squeezeTail() {
	n := len(s.spans)
	last := s.spans[n-1].End
	if last <= s.duration {
		return
	}
	k := 0
	for k < n && s.spans[k].End <= s.duration {
		k++
	}
	for k > 0 && s.duration-s.spans[k].Start < float64(n-k)*s.cfg.MinDuration/2 {
		k--
	}
	from := s.spans[k].Start
	if from >= s.duration {
		from = 0
		if k > 0 {
			from = s.spans[k-1].End
		}
	}
	scale := (s.duration - from) / (last - from)
	at := func(t float64) float64 {
		if t <= from {
			return from
		}
		return from + (t-from)*scale
	}
	for i := k; i < n; i++ {
		old := s.spans[i]
		span := cue.TimeInterval{Start: at(old.Start), End: at(old.End)}
		if i == n-1 {
			span.End = s.duration
		}
		if span != old {
			s.note(i, cue.KindClampedBounds, "moved from %s to %s to fit track duration %.3f", old, span, s.duration)
		}
		s.spans[i] = span
	}
}

package cue

import "fmt"

// InvariantError reports the first cue that breaks ordering or bounds.
type InvariantError struct {
	Ordinal int
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cue %d: %s", e.Ordinal, e.Reason)
}

// Validate checks that cues are strictly ordered, non-overlapping, and lie
// within [0, trackDuration]. A non-positive trackDuration skips the upper bound.
func Validate(cues []Cue, trackDuration float64) error {
	prevOrdinal := 0
	prevEnd := 0.0
	for i, c := range cues {
		if c.Ordinal <= prevOrdinal {
			return &InvariantError{Ordinal: c.Ordinal, Reason: fmt.Sprintf("ordinal not increasing (previous %d)", prevOrdinal)}
		}
		if c.Interval.Start < 0 {
			return &InvariantError{Ordinal: c.Ordinal, Reason: fmt.Sprintf("negative start %.3f", c.Interval.Start)}
		}
		if c.Interval.End <= c.Interval.Start {
			return &InvariantError{Ordinal: c.Ordinal, Reason: fmt.Sprintf("non-positive duration %s", c.Interval)}
		}
		if trackDuration > 0 && c.Interval.End > trackDuration+epsilon {
			return &InvariantError{Ordinal: c.Ordinal, Reason: fmt.Sprintf("end %.3f exceeds track duration %.3f", c.Interval.End, trackDuration)}
		}
		if i > 0 && c.Interval.Start < prevEnd-epsilon {
			return &InvariantError{Ordinal: c.Ordinal, Reason: fmt.Sprintf("start %.3f overlaps previous end %.3f", c.Interval.Start, prevEnd)}
		}
		prevOrdinal = c.Ordinal
		prevEnd = c.Interval.End
	}
	return nil
}

// epsilon absorbs float noise from proportional splitting.
const epsilon = 1e-9

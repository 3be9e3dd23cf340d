package align

import (
	"errors"
	"fmt"
)

// Config holds the alignment tunables. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Threshold is the minimum word similarity for a match and the minimum
	// line score below which a low-confidence diagnostic is raised.
	Threshold float64
	// MatchWeight scales the similarity of a matched pair.
	MatchWeight float64
	// GapOpen is charged for the first word of an unmatched run.
	GapOpen float64
	// GapExtend is charged for every further word of the run.
	GapExtend float64
	// KeepLowConfidence trusts the partial candidate of lines scoring below
	// Threshold. By default such lines are re-timed by interpolation.
	KeepLowConfidence bool
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.6,
		MatchWeight: 2.0,
		GapOpen:     1.0,
		GapExtend:   0.25,
	}
}

// Validate reports configuration values the aligner cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Threshold <= 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be in (0,1], got %v", c.Threshold))
	}
	if c.MatchWeight <= 0 {
		errs = append(errs, fmt.Errorf("match weight must be positive, got %v", c.MatchWeight))
	}
	if c.GapOpen < 0 || c.GapExtend < 0 {
		errs = append(errs, fmt.Errorf("gap penalties must be non-negative, got open=%v extend=%v", c.GapOpen, c.GapExtend))
	}
	if c.GapExtend > c.GapOpen {
		errs = append(errs, fmt.Errorf("gap extend (%v) must not exceed gap open (%v)", c.GapExtend, c.GapOpen))
	}
	return errors.Join(errs...)
}

package repair

import (
	"errors"
	"fmt"
)

// Config holds the repair tunables.
type Config struct {
	// MinDuration is the floor applied when clamping leaves a cue empty, in seconds.
	MinDuration float64
	// MaxDuration caps a cue's length when positive.
	MaxDuration float64
}

// DefaultConfig returns a one-second floor and no cap.
func DefaultConfig() Config {
	return Config{MinDuration: 1.0}
}

// Validate reports unusable values.
func (c Config) Validate() error {
	var errs []error
	if c.MinDuration <= 0 {
		errs = append(errs, fmt.Errorf("min duration must be positive, got %v", c.MinDuration))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max duration must not be negative, got %v", c.MaxDuration))
	}
	if c.MaxDuration > 0 && c.MaxDuration < c.MinDuration {
		errs = append(errs, fmt.Errorf("max duration (%v) below min duration (%v)", c.MaxDuration, c.MinDuration))
	}
	return errors.Join(errs...)
}

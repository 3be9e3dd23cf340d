package cue

import "fmt"

// DiagnosticKind classifies a non-fatal quality event.
type DiagnosticKind string

const (
	// KindLowConfidence marks a reference line whose best match scored below threshold.
	KindLowConfidence DiagnosticKind = "low_confidence"
	// KindInterpolated marks a line timed by distributing a gap between neighbours.
	KindInterpolated DiagnosticKind = "interpolated"
	// KindClampedStart marks a cue whose start was moved to its predecessor's end.
	KindClampedStart DiagnosticKind = "clamped_start"
	// KindExtendedEnd marks a cue whose end was pushed out to the minimum duration.
	KindExtendedEnd DiagnosticKind = "extended_end"
	// KindClampedBounds marks a cue moved inside [0, track duration].
	KindClampedBounds DiagnosticKind = "clamped_bounds"
	// KindTrimmedEnd marks a cue shortened to the maximum duration.
	KindTrimmedEnd DiagnosticKind = "trimmed_end"
	// KindCorrected marks a cue whose display text was rewritten by the corrector.
	KindCorrected DiagnosticKind = "corrected"
	// KindCorrectionSkipped marks a correction pass that could not be applied.
	KindCorrectionSkipped DiagnosticKind = "correction_skipped"
	// KindTranscriptOnly marks a run that fell back to unmodified transcript text.
	KindTranscriptOnly DiagnosticKind = "transcript_only"
)

// Diagnostic records one non-fatal event. Line is the 0-based reference line
// index, or -1 when the event concerns the whole run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Line    int            `json:"line"`
	Score   float64        `json:"score,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line < 0 {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s (line %d): %s", d.Kind, d.Line+1, d.Message)
}

// IsRepair reports whether the diagnostic describes a timing adjustment.
func (d Diagnostic) IsRepair() bool {
	switch d.Kind {
	case KindClampedStart, KindExtendedEnd, KindClampedBounds, KindTrimmedEnd:
		return true
	}
	return false
}

// CountByKind tallies diagnostics per kind.
func CountByKind(diags []Diagnostic) map[DiagnosticKind]int {
	counts := make(map[DiagnosticKind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

// Filter returns the diagnostics of the given kind.
func Filter(diags []Diagnostic, kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

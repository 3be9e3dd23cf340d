// Package reconcile runs the lyric and timecode reconciliation engine:
// reference and transcript normalisation, word alignment, and time repair.
//
// The engine is a pure computation over already-materialised inputs. It does
// no I/O and keeps no state between runs, so one Engine can serve concurrent
// songs. Structural problems (no lyric lines, no transcript words) are
// returned as errors; quality problems travel as cue.Diagnostic values in
// the Result.
package reconcile

// Package repair turns per-line alignment candidates into a gap-free,
// non-overlapping cue sequence inside [0, track duration].
//
// Accepted candidates are walked in order and clamped so no cue starts before
// its predecessor ends. Lines without a candidate share the gap between
// their accepted neighbours in proportion to estimated syllables. A final
// pass enforces bounds, squeezing tail cues into the room before the track
// ends. Every adjustment is reported as a cue.Diagnostic.
package repair

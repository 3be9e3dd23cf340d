// Package subtitles serialises cue sequences as SubRip (SRT) or Advanced
// SubStation Alpha (ASS) and reads SRT back for validation.
//
// Writers are pure transforms over []cue.Cue. Timestamps are rounded to the
// nearest millisecond for SRT and centisecond for ASS; rounding is monotone
// so it never makes a cue overlap its neighbour.
package subtitles

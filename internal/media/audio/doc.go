// Package audio probes song files for their duration and metadata.
//
// WAV files (including separated stems) are measured directly from the RIFF
// header. Everything else goes through ffprobe, whose tags also supply the
// artist, title and language hints used when the caller gives none.
package audio

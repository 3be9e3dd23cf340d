// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns a Result. Helpers on Result expose the
// song duration (container first, then the longest audio stream) and the
// merged metadata tags used to guess artist, title and language.
package ffprobe

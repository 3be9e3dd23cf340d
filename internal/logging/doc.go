// Package logging assembles structured slog loggers and formatting helpers used
// across lyricsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and rotates log files through lumberjack. Context helpers tag log
// lines with the run ID, pipeline stage, and song being processed. The
// package also provides a no-op logger for tests and for library code that is
// handed a nil logger.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same field names.
package logging

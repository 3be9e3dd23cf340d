// Package services holds the shared plumbing used by the external
// collaborators (stem separator, transcriber, lyrics source, LLM, ffmpeg)
// and the pipeline that drives them.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, song labels, and stage
//     names for structured logging.
//   - Error markers plus the Wrap helper so the CLI can map a failure to an
//     exit status without string matching.
//   - The CommandRunner abstraction that keeps exec-based collaborators
//     testable.
package services

// Package preflight provides readiness checks for the external tools,
// services and filesystem paths lyricsync depends on.
//
// The CLI "lyricsync check" command renders RunAll and CheckSystemDeps as
// tables, and "lyricsync run" calls CheckSystemDeps before starting so a
// missing binary fails fast instead of after a long separation.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight

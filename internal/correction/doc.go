// Package correction runs an optional LLM pass over finished cues to fix
// display text (spelling, casing, obvious mis-hearings carried over from the
// lyrics source).
//
// The corrector only ever rewrites Cue.Text. Cue count, ordinals, and every
// interval are copied from the input unchanged, so a corrected sequence is
// always as valid as the one passed in. Failures never abort a run: any LLM
// error leaves the cues untouched and is reported as a correction_skipped
// diagnostic.
package correction

// Package pipeline runs one song end to end: stem separation and lyrics
// lookup in parallel, transcription, reconciliation, optional LLM text
// correction, subtitle emission and the karaoke video render.
//
// Each run holds an exclusive lock on its work directory, carries a run id
// through the context and writes a JSON log next to its artifacts. External
// tools sit behind small interfaces so tests can substitute fakes.
package pipeline

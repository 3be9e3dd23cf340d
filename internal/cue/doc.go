// Package cue defines the data carried through a reconciliation run.
//
// Reference lines and timed tokens enter the engine, alignment edges bind the
// two, and the repair stage emits the terminal Cue sequence. Every value is
// created once and never mutated afterwards; stages return fresh slices.
//
// Validate checks the ordering and bounds guarantees every emitted cue
// sequence must satisfy, so tests and the pipeline can assert on them
// without re-implementing the rules.
package cue

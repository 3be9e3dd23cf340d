// Package language maps language names and ISO 639 codes to the two-letter
// codes the transcriber accepts, and reads language hints from audio tags.
package language

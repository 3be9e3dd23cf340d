// Package demucs separates a song into a vocal stem and an instrumental stem
// by running the demucs command-line tool in two-stem mode.
package demucs

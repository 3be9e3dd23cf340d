// Package whisperx runs the WhisperX command-line transcriber on a vocal stem
// and loads the word-timed JSON it writes.
//
// The service only builds arguments and reads output; execution goes through
// an injectable services.CommandRunner so tests never start a real process.
package whisperx

// Package ffmpeg renders the karaoke video: a background (solid colour,
// looped image, or looped video) with the subtitles burned in and the
// instrumental stem as the soundtrack.
package ffmpeg

// Package main hosts the lyricsync CLI entrypoint and command graph.
//
// "align" runs the reconciliation engine alone on a transcript and a lyrics
// file. "run" drives the whole song pipeline, "lyrics" fetches and caches
// reference lyrics, "check" reports tool and service readiness, and
// "config" scaffolds or validates the TOML configuration.
//
// Configuration resolution and logger setup live in commandContext so
// subcommands only wire flags to internal packages.
package main

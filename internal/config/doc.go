// Package config loads, normalizes, and validates lyricsync configuration.
//
// Configuration lives in a TOML file (default ~/.config/lyricsync/config.toml)
// decoded with go-toml. Load applies defaults, expands ~ in paths, reads API
// keys from the environment when the file leaves them empty, and validates
// every section. Accessors such as AlignConfig and RepairConfig translate the
// file sections into the explicit config values the core packages accept.
package config

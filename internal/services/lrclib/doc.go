// Package lrclib fetches reference lyrics from an LRCLIB server.
//
// Get performs an exact artist/title lookup and Search a free-text query.
// A missing song surfaces as *NotFoundError, which matches
// services.ErrNotFound under errors.Is, so callers can apply their not-found
// policy without string matching. Best ranks search hits by how closely their
// text resembles a transcript.
package lrclib

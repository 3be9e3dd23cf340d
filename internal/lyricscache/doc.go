// Package lyricscache stores fetched reference lyrics in SQLite so repeated
// runs for the same song skip the network.
//
// Entries are keyed by the matching keys of artist and title, so "ABBA" and
// "abba" share an entry. The database runs in WAL mode with a busy timeout;
// writes retry briefly when another process holds the lock.
package lyricscache

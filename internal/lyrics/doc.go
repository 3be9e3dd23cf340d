// Package lyrics turns raw reference lyric text into ordered ReferenceLines.
//
// Section headers ("[Chorus]", "(Verse 2)", "Bridge:"), inline bracket notes,
// and blank lines are stripped; everything else is kept in order with its
// original spelling for display and a folded key for matching.
package lyrics

// Package transcript converts recogniser output into word-level TimedTokens.
//
// Recognisers emit either word-level timings (WhisperX alignment) or only
// phrase-level segments. Both shapes arrive as Segment values and leave
// Normalize as one TimedToken per matching-key word. Phrase-level segments
// are split on whitespace and their interval is shared out in proportion to
// each word's character length. That split is an approximation: the real
// onset of each word inside a phrase is unknown.
//
// Filter optionally drops recogniser noise (credit lines, hallucinated
// sign-offs, intro ad-libs) before tokenisation.
package transcript

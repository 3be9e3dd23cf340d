// Package align maps reference lyric words onto recognised transcript tokens.
//
// The reference lines are flattened into one word stream and globally aligned
// against the token stream with affine gap penalties (Gotoh's three-matrix
// form of Needleman-Wunsch). Words only pair up when their edit-distance
// similarity reaches the configured threshold. Insertions (recogniser noise)
// and deletions (missed words) are both allowed, but opening a gap costs more
// than extending one, so unmatched words cluster into runs and each line
// tends to bind to one contiguous span of tokens.
//
// Equal-scoring alignments are broken in favour of binding each reference
// word to the earliest eligible token, and a final pass rejects any match
// that would start before the previous accepted one.
package align

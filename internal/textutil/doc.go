// Package textutil provides the text folding and similarity primitives shared
// by the normalizers, the aligner, and the lyrics ranking code.
//
// The primary use cases are:
//   - Building matching keys: NFC composition, Unicode case folding, and
//     punctuation stripping. Diacritics are kept, so "café" and "cafe" differ.
//   - Scoring word pairs with a bounded edit-distance similarity
//   - Creating token fingerprints and computing cosine similarity between them
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil

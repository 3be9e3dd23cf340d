package align

import (
	"fmt"
	"math"

	"lyricsync/internal/cue"
	"lyricsync/internal/textutil"
)

// WordMatch is the alignment outcome for one reference word. Token is -1
// when the word found no match.
type WordMatch struct {
	Line       int     `json:"line"`
	Word       int     `json:"word"`
	Key        string  `json:"key"`
	Token      int     `json:"token"`
	Similarity float64 `json:"similarity"`
}

// Matched reports whether the word was bound to a token.
func (w WordMatch) Matched() bool { return w.Token >= 0 }

// Result is the output of Align.
type Result struct {
	Edges       []cue.AlignmentEdge `json:"edges"`
	Words       []WordMatch         `json:"words"`
	Diagnostics []cue.Diagnostic    `json:"diagnostics,omitempty"`
	Score       float64             `json:"score"`
}

// MatchedWords counts reference words bound to a token.
func (r Result) MatchedWords() int {
	n := 0
	for _, w := range r.Words {
		if w.Matched() {
			n++
		}
	}
	return n
}

// Coverage is the fraction of reference words that were matched.
func (r Result) Coverage() float64 {
	if len(r.Words) == 0 {
		return 0
	}
	return float64(r.MatchedWords()) / float64(len(r.Words))
}

// Align aligns the words of lines against tokens and derives one edge per
// line. It never fails; empty inputs simply produce unmatched edges.
func Align(lines []cue.ReferenceLine, tokens []cue.TimedToken, cfg Config) Result {
	words := flatten(lines)
	score := globalAlign(words, tokens, cfg)
	enforceMonotonic(words, tokens)
	return buildResult(lines, words, tokens, score, cfg)
}

func flatten(lines []cue.ReferenceLine) []WordMatch {
	var words []WordMatch
	for li, line := range lines {
		for wi, key := range line.Words {
			words = append(words, WordMatch{Line: li, Word: wi, Key: key, Token: -1})
		}
	}
	return words
}

// Traceback states.
const (
	stateMatch   uint8 = iota // reference word paired with token
	stateRefGap               // reference word left unmatched
	stateTokenGap             // transcript token left unmatched
)

const tieEpsilon = 1e-9

var negInf = math.Inf(-1)

// pick returns the best of the three state scores. Near-equal scores resolve
// in the order token gap, match, reference gap; during traceback that binds
// each reference word to the earliest token that scores as well.
func pick(match, refGap, tokenGap float64) (float64, uint8) {
	best := math.Max(match, math.Max(refGap, tokenGap))
	switch {
	case tokenGap >= best-tieEpsilon:
		return tokenGap, stateTokenGap
	case match >= best-tieEpsilon:
		return match, stateMatch
	default:
		return refGap, stateRefGap
	}
}

// globalAlign fills the Gotoh matrices, traces back the best path and
// records matches in words. It returns the alignment score.
func globalAlign(words []WordMatch, tokens []cue.TimedToken, cfg Config) float64 {
	n, m := len(words), len(tokens)
	if n == 0 || m == 0 {
		return 0
	}
	width := m + 1
	size := (n + 1) * width
	M := make([]float64, size)
	X := make([]float64, size)
	Y := make([]float64, size)
	backM := make([]uint8, size)
	backX := make([]uint8, size)
	backY := make([]uint8, size)

	open, extend := cfg.GapOpen, cfg.GapExtend
	X[0], Y[0] = negInf, negInf
	for i := 1; i <= n; i++ {
		at := i * width
		M[at], Y[at] = negInf, negInf
		X[at] = -(open + float64(i-1)*extend)
		backX[at] = stateRefGap
		if i == 1 {
			backX[at] = stateMatch
		}
	}
	for j := 1; j <= m; j++ {
		M[j], X[j] = negInf, negInf
		Y[j] = -(open + float64(j-1)*extend)
		backY[j] = stateTokenGap
		if j == 1 {
			backY[j] = stateMatch
		}
	}

	for i := 1; i <= n; i++ {
		key := words[i-1].Key
		for j := 1; j <= m; j++ {
			at := i*width + j
			diag := at - width - 1
			up := at - width
			left := at - 1

			M[at] = negInf
			if sim := textutil.WordSimilarity(key, tokens[j-1].Key); sim >= cfg.Threshold {
				best, from := pick(M[diag], X[diag], Y[diag])
				M[at] = best + cfg.MatchWeight*sim
				backM[at] = from
			}
			X[at], backX[at] = pick(M[up]-open, X[up]-extend, Y[up]-open)
			Y[at], backY[at] = pick(M[left]-open, X[left]-open, Y[left]-extend)
		}
	}

	end := n*width + m
	score, state := pick(M[end], X[end], Y[end])
	i, j := n, m
	for i > 0 || j > 0 {
		at := i*width + j
		switch state {
		case stateMatch:
			words[i-1].Token = j - 1
			words[i-1].Similarity = textutil.WordSimilarity(words[i-1].Key, tokens[j-1].Key)
			state = backM[at]
			i--
			j--
		case stateRefGap:
			state = backX[at]
			i--
		default:
			state = backY[at]
			j--
		}
	}
	return score
}

// enforceMonotonic unbinds any word whose token starts before the token of
// the previous accepted match.
func enforceMonotonic(words []WordMatch, tokens []cue.TimedToken) {
	last := negInf
	for i := range words {
		t := words[i].Token
		if t < 0 {
			continue
		}
		start := tokens[t].Interval.Start
		if start < last-tieEpsilon {
			words[i].Token = -1
			words[i].Similarity = 0
			continue
		}
		last = start
	}
}

func buildResult(lines []cue.ReferenceLine, words []WordMatch, tokens []cue.TimedToken, score float64, cfg Config) Result {
	res := Result{
		Edges: make([]cue.AlignmentEdge, len(lines)),
		Words: words,
		Score: score,
	}
	for li, line := range lines {
		res.Edges[li] = cue.AlignmentEdge{Line: li, Words: len(line.Words)}
	}

	first := make([]int, len(lines))
	last := make([]int, len(lines))
	for i := range first {
		first[i], last[i] = -1, -1
	}
	sums := make([]float64, len(lines))
	for _, w := range words {
		if !w.Matched() {
			continue
		}
		edge := &res.Edges[w.Line]
		edge.Matched++
		sums[w.Line] += w.Similarity
		iv := tokens[w.Token].Interval
		if edge.Candidate == nil {
			edge.Candidate = &cue.TimeInterval{Start: iv.Start, End: iv.End}
		} else {
			edge.Candidate.Start = math.Min(edge.Candidate.Start, iv.Start)
			edge.Candidate.End = math.Max(edge.Candidate.End, iv.End)
		}
		if first[w.Line] < 0 || w.Token < first[w.Line] {
			first[w.Line] = w.Token
		}
		if w.Token > last[w.Line] {
			last[w.Line] = w.Token
		}
	}

	for li := range res.Edges {
		edge := &res.Edges[li]
		if edge.Words > 0 {
			edge.Score = sums[li] / float64(edge.Words)
		}
		if first[li] >= 0 {
			for t := first[li]; t <= last[li]; t++ {
				edge.Tokens = append(edge.Tokens, t)
			}
		}
		switch {
		case edge.Matched == 0:
			res.Diagnostics = append(res.Diagnostics, cue.Diagnostic{
				Kind:    cue.KindLowConfidence,
				Line:    li,
				Message: "no transcript words matched",
			})
		case edge.Score < cfg.Threshold:
			msg := fmt.Sprintf("matched %d of %d words", edge.Matched, edge.Words)
			if !cfg.KeepLowConfidence {
				edge.Candidate = nil
				msg += ", candidate dropped"
			}
			res.Diagnostics = append(res.Diagnostics, cue.Diagnostic{
				Kind:    cue.KindLowConfidence,
				Line:    li,
				Score:   edge.Score,
				Message: msg,
			})
		}
	}
	return res
}

package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MatchKey folds text into the form used for comparison: NFC composed, case
// folded, apostrophes removed, other punctuation and symbols turned into
// spaces, whitespace collapsed.
func MatchKey(text string) string {
	if text == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFC.String(text))
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case isApostrophe(r):
			continue
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// Words splits text into matching-key words.
func Words(text string) []string {
	return strings.Fields(MatchKey(text))
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', '`', 'ʼ':
		return true
	}
	return false
}

// VowelGroups estimates syllables by counting runs of vowels. Words without
// any vowel (digits, non-Latin scripts) count as one group per two runes.
func VowelGroups(word string) int {
	groups := 0
	inVowel := false
	runes := 0
	for _, r := range word {
		runes++
		if isVowel(r) {
			if !inVowel {
				groups++
			}
			inVowel = true
			continue
		}
		inVowel = false
	}
	if groups == 0 && runes > 0 {
		groups = (runes + 1) / 2
	}
	return groups
}

func isVowel(r rune) bool {
	base := norm.NFD.String(string(unicode.ToLower(r)))
	if base == "" {
		return false
	}
	switch []rune(base)[0] {
	case 'a', 'e', 'i', 'o', 'u', 'y', 'ı', 'а', 'е', 'ё', 'и', 'о', 'у', 'ы', 'э', 'ю', 'я':
		return true
	}
	return false
}

package textmatch

import "strings"

// SignificantWords extracts the tokens of a description worth matching on:
// lower-cased, split on whitespace, hyphens, slashes, and parentheses, with
// non-alphanumerics stripped from each token. Tokens shorter than three
// characters or purely numeric are dropped. The result is de-duplicated,
// preserving first-occurrence order.
func SignificantWords(text string) []string {
	text = strings.ToLower(text)

	words := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '/', '(', ')':
			return true
		}
		return false
	})

	seen := make(map[string]bool, len(words))
	significant := make([]string, 0, len(words))

	for _, word := range words {
		word = stripNonAlnum(word)
		if len(word) < 3 || isNumeric(word) || seen[word] {
			continue
		}
		seen[word] = true
		significant = append(significant, word)
	}

	return significant
}

func stripNonAlnum(word string) string {
	var b strings.Builder
	for i := 0; i < len(word); i++ {
		c := word[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isNumeric(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < '0' || word[i] > '9' {
			return false
		}
	}
	return len(word) > 0
}

// WordMatchScore returns the percentage of wordsA matched in wordsB, in
// [0,100]. A word counts as matched when some word in wordsB is identical,
// contains it, is contained by it, or - for words of four or more characters
// on both sides - is within Levenshtein distance 2 where that distance is
// under 30% of the longer word.
//
// The score is intentionally asymmetric: it is normalized by the driving
// side's word count only, so WordMatchScore(a, b) != WordMatchScore(b, a)
// in general.
func WordMatchScore(wordsA, wordsB []string) float64 {
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matches := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			// Exact match or one contains the other (handles "trimtex" vs "trim-tex")
			if wa == wb || strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				matches++
				break
			}
			if len(wa) >= 4 && len(wb) >= 4 {
				maxLen := len(wa)
				if len(wb) > maxLen {
					maxLen = len(wb)
				}
				distance := Levenshtein(wa, wb)
				if distance <= 2 && float64(distance)/float64(maxLen) < 0.3 {
					matches++
					break
				}
			}
		}
	}

	return float64(matches) / float64(len(wordsA)) * 100
}

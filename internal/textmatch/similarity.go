// Package textmatch derives comparable text signals from line descriptions:
// a character-level similarity percentage and a significant-word overlap
// score. Both feed the pairwise scorers in internal/matcher.
package textmatch

// SimilarityPercent returns a similarity percentage in [0,100] between two
// strings using a recursive longest-common-substring measure: find the
// longest common substring, then recurse on the text to the left and to the
// right of it in both strings, summing all matched lengths M, and return
// 200*M/(len(a)+len(b)).
//
// Downstream match thresholds were calibrated against the exact output
// distribution of this measure, so it must not be replaced with Levenshtein
// or n-gram similarity. Operates on bytes.
func SimilarityPercent(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return float64(similarChars(a, b)) * 200.0 / float64(len(a)+len(b))
}

// similarChars returns the total number of matching characters found by the
// recursive longest-common-substring walk.
func similarChars(a, b string) int {
	pos1, pos2, max := longestCommonRun(a, b)
	if max == 0 {
		return 0
	}

	sum := max
	if pos1 > 0 && pos2 > 0 {
		sum += similarChars(a[:pos1], b[:pos2])
	}
	if pos1+max < len(a) && pos2+max < len(b) {
		sum += similarChars(a[pos1+max:], b[pos2+max:])
	}
	return sum
}

// longestCommonRun finds the longest common substring of a and b, returning
// its start positions and length. Ties keep the first occurrence found when
// scanning a then b left to right; the tie-break is part of the calibrated
// behavior.
func longestCommonRun(a, b string) (pos1, pos2, max int) {
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			l := 0
			for i+l < len(a) && j+l < len(b) && a[i+l] == b[j+l] {
				l++
			}
			if l > max {
				max = l
				pos1 = i
				pos2 = j
			}
		}
	}
	return pos1, pos2, max
}

// Levenshtein returns the edit distance between two strings, counting
// insertions, deletions, and substitutions at unit cost. Operates on bytes.
func Levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

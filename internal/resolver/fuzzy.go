package resolver

import "strings"

// ratio mirrors Python's difflib.SequenceMatcher.ratio(): 2*M / T, where M
// is the total length of matching blocks found by repeatedly extracting the
// longest common contiguous run and recursing on the left/right remainders,
// and T is the sum of both string lengths. This recursive longest-matching-
// block construction (not a plain LCS length) is what gives difflib's ratio
// its particular tolerance for transpositions, which the upstream resolver
// depends on for team-name scoring.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	matched := matchedLength([]rune(a), []rune(b))
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matched) / float64(total)
}

func matchedLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, length := longestMatch(a, b)
	if length == 0 {
		return 0
	}
	return length + matchedLength(a[:ai], b[:bi]) + matchedLength(a[ai+length:], b[bi+length:])
}

// longestMatch finds the longest contiguous run common to a and b using a
// rolling-hash-free O(len(a)*len(b)) DP, returning its start indices and length.
func longestMatch(a, b []rune) (aStart, bStart, length int) {
	dp := make([]int, len(b)+1)
	prev := make([]int, len(b)+1)
	best, bestI, bestJ := 0, 0, 0

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[j] = prev[j-1] + 1
				if dp[j] > best {
					best = dp[j]
					bestI = i
					bestJ = j
				}
			} else {
				dp[j] = 0
			}
		}
		prev, dp = dp, prev
	}

	return bestI - best, bestJ - best, best
}

// tokenSetSimilarity compares two strings ignoring token order and
// duplicate tokens, the way a fuzzy team-name matcher needs to: "Lakers LA"
// and "LA Lakers" should score 1.0. It computes ratio() over three
// candidate pairings (sorted common+diff tokens, a vs combined, b vs
// combined) and returns the max, mirroring the upstream token_set_ratio
// construction.
func tokenSetSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return ratio(a, b)
	}

	setA := toSet(ta)
	setB := toSet(tb)

	var common, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}

	sortStrings(common)
	sortStrings(onlyA)
	sortStrings(onlyB)

	commonStr := strings.Join(common, " ")
	sorted1 := strings.TrimSpace(commonStr + " " + strings.Join(onlyA, " "))
	sorted2 := strings.TrimSpace(commonStr + " " + strings.Join(onlyB, " "))

	r1 := ratio(commonStr, sorted1)
	r2 := ratio(commonStr, sorted2)
	r3 := ratio(sorted1, sorted2)

	return max3(r1, r2, r3)
}

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(s)))
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// TokenSetSimilarity is the exported entry point used by scoring.
func TokenSetSimilarity(a, b string) float64 {
	return tokenSetSimilarity(a, b)
}

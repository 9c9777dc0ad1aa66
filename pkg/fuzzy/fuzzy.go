package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the rune-level edit distance between two
// normalized strings
func LevenshteinDistance(s1, s2 string) int {
	return RuneDistance(normalizeString(s1), normalizeString(s2))
}

// RuneDistance is the exact Levenshtein distance over runes, without normalization
func RuneDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Two rolling rows instead of the full matrix
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

// FuzzyMatch checks if query fuzzy-matches text within a given threshold
// threshold is the maximum allowed edit distance per word
func FuzzyMatch(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)
	if query == "" {
		return false
	}

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || LevenshteinDistance(query, word) <= threshold {
			return true
		}
	}
	return false
}

// Threshold scales typo tolerance with query length
func Threshold(query string) int {
	switch n := len([]rune(query)); {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// ScoreThread scores how relevant a thread is to a query. Higher is more relevant,
// zero means no match. Subject outweighs participants, which outweigh the snippet.
func ScoreThread(query, subject, snippet string, participants []string) float64 {
	query = normalizeString(query)
	if query == "" {
		return 0
	}

	score := fieldScore(query, subject, 100, 50)
	for _, p := range participants {
		s := fieldScore(query, p, 80, 40)
		// Match on the local part of an address
		if at := strings.Index(p, "@"); at > 0 && strings.HasPrefix(normalizeString(p[:at]), query) {
			s += 30
		}
		score += s
	}
	if FuzzyMatch(query, truncate(snippet, 500), Threshold(query)) {
		score += 20
	}
	return score
}

func fieldScore(query, field string, exact, fuzzyMax float64) float64 {
	norm := normalizeString(field)
	if norm == "" {
		return 0
	}
	if strings.Contains(norm, query) {
		score := exact
		if containsWord(norm, query) {
			score += exact / 2
		}
		return score
	}

	score := 0.0
	for _, word := range strings.Fields(norm) {
		if dist := LevenshteinDistance(query, word); dist <= 2 {
			score += fuzzyMax - float64(dist)*fuzzyMax/3
		}
		if strings.HasPrefix(word, query) {
			score += fuzzyMax * 0.8
		}
	}
	return score
}

// normalizeString lowercases and collapses whitespace
func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

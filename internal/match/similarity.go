package match

import "strings"

// Band scores for discrete string relations. A continuous trigram score can
// override a band only upward; both directions are symmetric in their inputs
// where the relation itself is symmetric.
const (
	bandExact     = 1.0
	bandPrefix    = 0.85
	bandSubstring = 0.7
)

// bandScore scores the discrete relation between two strings. Prefix and
// substring checks run both ways so the function stays symmetric.
func bandScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return bandExact
	}
	if strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return bandPrefix
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return bandSubstring
	}
	return 0
}

// trigramSimilarity returns the Jaccard similarity of the two strings' padded
// rune-trigram sets, pg_trgm style. Symmetric by construction.
func trigramSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ta := trigrams(a)
	tb := trigrams(b)

	var intersection int
	for g := range ta {
		if tb[g] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func trigrams(s string) map[string]bool {
	padded := []rune("  " + s + " ")
	set := make(map[string]bool, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		set[string(padded[i:i+3])] = true
	}
	return set
}

// tokenOverlap returns the Jaccard similarity of two lowercase token sets.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[strings.ToLower(t)] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[strings.ToLower(t)] = true
	}

	var intersection int
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// nameIntersection returns the case-insensitive intersection of two name
// lists, preserving the first list's casing.
func nameIntersection(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	setB := make(map[string]bool, len(b))
	for _, n := range b {
		setB[strings.ToLower(n)] = true
	}
	var out []string
	for _, n := range a {
		if setB[strings.ToLower(n)] {
			out = append(out, n)
		}
	}
	return out
}

// Package similarity scores how alike two organizer or location strings are.
package similarity

import (
	"fmt"
	"strings"
	"unicode"

	"horse.fit/jachtproef/internal/textnorm"
)

// LegalFormMatch is returned when two strings differ only in generic
// association words ("Stichting X" vs "X").
const LegalFormMatch = 0.95

// Measure names the fallback used when two strings are neither equal nor the
// same entity under another legal form.
type Measure string

const (
	MeasureOverlap        Measure = "overlap"
	MeasureTokenJaccard   Measure = "token_jaccard"
	MeasureTrigramJaccard Measure = "trigram_jaccard"
)

// ParseMeasure accepts a measure name; empty means MeasureOverlap.
func ParseMeasure(raw string) (Measure, error) {
	switch m := Measure(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return MeasureOverlap, nil
	case MeasureOverlap, MeasureTokenJaccard, MeasureTrigramJaccard:
		return m, nil
	default:
		return "", fmt.Errorf("unknown similarity measure %q", raw)
	}
}

// Score returns a similarity in [0,1] using the character overlap fallback.
// Two empty inputs never match.
func Score(a, b string) float64 {
	return MeasureOverlap.Score(a, b)
}

// Score returns a similarity in [0,1]: 1 for equal normalized strings,
// LegalFormMatch for equal keys, otherwise the measure's fallback.
func (m Measure) Score(a, b string) float64 {
	left := textnorm.Normalize(a)
	right := textnorm.Normalize(b)
	if left == "" || right == "" {
		return 0
	}
	if left == right {
		return 1
	}

	leftKey := textnorm.Key(a)
	rightKey := textnorm.Key(b)
	if leftKey != "" && leftKey == rightKey {
		return LegalFormMatch
	}

	switch m {
	case MeasureTokenJaccard:
		return jaccard(tokenSet(left), tokenSet(right))
	case MeasureTrigramJaccard:
		return jaccard(trigramSet(left), trigramSet(right))
	default:
		return charOverlap(left, right)
	}
}

// charOverlap is the multiset intersection of runes over the longer length.
func charOverlap(left, right string) float64 {
	leftRunes := []rune(left)
	rightRunes := []rune(right)
	longest := max(len(leftRunes), len(rightRunes))
	if longest == 0 {
		return 0
	}

	counts := make(map[rune]int, len(rightRunes))
	for _, r := range rightRunes {
		counts[r]++
	}

	shared := 0
	for _, r := range leftRunes {
		if counts[r] > 0 {
			counts[r]--
			shared++
		}
	}
	return clamp(float64(shared) / float64(longest))
}

func jaccard(leftSet, rightSet map[string]struct{}) float64 {
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}

	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftSet) + len(rightSet) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(normalized string) map[string]struct{} {
	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(parts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(parts))
	for _, token := range parts {
		set[token] = struct{}{}
	}
	return set
}

func trigramSet(normalized string) map[string]struct{} {
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}

	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func clamp(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

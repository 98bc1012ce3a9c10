// Package labeldiff classifies why two text labels differ.
package labeldiff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"reportverify/internal/domain"
)

// SpellingThreshold is the similarity a case-insensitive pair must exceed to
// count as a spelling error.
const SpellingThreshold = 0.8

// Result is the classification of one label pair.
type Result struct {
	Verdict     domain.Verdict
	Similarity  float64
	Description string
}

// Classify returns the most specific reason expected and actual differ. Rules
// are tried in order and the first match wins.
func Classify(expected, actual string) Result {
	if expected == actual {
		return Result{Verdict: domain.VerdictExactMatch, Similarity: 1, Description: "Exact match"}
	}

	if strings.Join(strings.Fields(expected), " ") == strings.Join(strings.Fields(actual), " ") {
		return Result{Verdict: domain.VerdictWhitespaceDifference, Description: "Space difference (extra/missing spaces)"}
	}

	lowerExpected := strings.ToLower(expected)
	lowerActual := strings.ToLower(actual)
	if lowerExpected == lowerActual {
		return Result{Verdict: domain.VerdictCaseDifference, Description: "Case difference (upper/lower case)"}
	}

	ratio := Similarity(lowerExpected, lowerActual)
	if ratio > SpellingThreshold {
		return Result{
			Verdict:     domain.VerdictSpellingError,
			Similarity:  ratio,
			Description: fmt.Sprintf("Spelling error (similarity: %.2f)", ratio),
		}
	}

	expectedWords := strings.Fields(lowerExpected)
	actualWords := strings.Fields(lowerActual)
	if sameWords(expectedWords, actualWords) {
		return Result{Verdict: domain.VerdictWordOrderDifference, Similarity: ratio, Description: "Word order difference"}
	}
	if containsAll(actualWords, expectedWords) {
		return Result{Verdict: domain.VerdictExtraWordsInActual, Similarity: ratio, Description: "Extra words in verification"}
	}
	if containsAll(expectedWords, actualWords) {
		return Result{Verdict: domain.VerdictMissingWordsInActual, Similarity: ratio, Description: "Missing words in verification"}
	}
	return Result{Verdict: domain.VerdictContentDifference, Similarity: ratio, Description: "Content difference"}
}

// Similarity is the Ratcliff/Obershelp ratio 2M/T of a and b compared
// character by character. Two empty strings are identical.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(chars(a), chars(b))
	return m.Ratio()
}

func chars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

func sameWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// containsAll reports whether every word of want appears somewhere in have.
// Repeated words need only appear once.
func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, w := range have {
		set[w] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

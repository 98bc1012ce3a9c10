// Package compare pairs two ordered label lists position by position and
// explains every difference.
package compare

import (
	"fmt"

	"reportverify/internal/domain"
	"reportverify/internal/labeldiff"
)

// LabelSource extracts an ordered label list from a document.
type LabelSource func() ([]string, error)

// Options names the compared items in messages, e.g. "Column" and "columns".
type Options struct {
	Subject string
	Item    string
	Items   string
}

// DefaultOptions describes a plain label list.
var DefaultOptions = Options{Subject: "Labels", Item: "Label", Items: "labels"}

// Compare pairs expected[i] with actual[i] for every i below the shorter
// length. No realignment is attempted, so a shifted column cascades into a
// run of discrepancies. A length difference adds one count mismatch.
func Compare(expected, actual []string) domain.ComparisonResult {
	return CompareWith(DefaultOptions, expected, actual)
}

// CompareWith is Compare with custom message wording.
func CompareWith(opts Options, expected, actual []string) domain.ComparisonResult {
	details := make([]domain.Discrepancy, 0)

	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		if expected[i] == actual[i] {
			continue
		}
		r := labeldiff.Classify(expected[i], actual[i])
		details = append(details, domain.Discrepancy{
			Position:    i + 1,
			Expected:    expected[i],
			Actual:      actual[i],
			Verdict:     r.Verdict,
			Description: r.Description,
			Similarity:  r.Similarity,
		})
	}

	if len(expected) != len(actual) {
		details = append(details, domain.Discrepancy{
			Expected:      fmt.Sprintf("Total %s: %d", opts.Items, len(expected)),
			Actual:        fmt.Sprintf("Total %s: %d", opts.Items, len(actual)),
			Verdict:       domain.VerdictCountMismatch,
			Description:   fmt.Sprintf("%s count mismatch: Design=%d, Verification=%d", opts.Item, len(expected), len(actual)),
			ExpectedCount: len(expected),
			ActualCount:   len(actual),
		})
	}

	if len(details) == 0 {
		return domain.ComparisonResult{
			Passed:  true,
			Message: fmt.Sprintf("%s match perfectly", opts.Subject),
			Details: details,
		}
	}
	return domain.ComparisonResult{
		Passed:  false,
		Message: fmt.Sprintf("%s differences found", opts.Subject),
		Details: details,
	}
}

// CompareSources extracts both lists and compares them. A failed extraction
// yields a failed result describing the read error instead of an error.
func CompareSources(opts Options, expected, actual LabelSource) domain.ComparisonResult {
	exp, err := expected()
	if err != nil {
		return readFailure(opts, err)
	}
	act, err := actual()
	if err != nil {
		return readFailure(opts, err)
	}
	return CompareWith(opts, exp, act)
}

func readFailure(opts Options, err error) domain.ComparisonResult {
	return domain.ComparisonResult{
		Passed:  false,
		Message: fmt.Sprintf("Error reading %s: %v", opts.Items, fmt.Errorf("%w: %w", domain.ErrDocumentRead, err)),
		Details: []domain.Discrepancy{},
	}
}

// Describe renders a discrepancy as a single line.
func Describe(opts Options, d domain.Discrepancy) string {
	if d.Verdict == domain.VerdictCountMismatch {
		return d.Description
	}
	return fmt.Sprintf("%s %d: %s - Design='%s' vs Verification='%s'", opts.Item, d.Position, d.Description, d.Expected, d.Actual)
}

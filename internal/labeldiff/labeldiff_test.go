package labeldiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reportverify/internal/domain"
	"reportverify/internal/labeldiff"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     domain.Verdict
	}{
		{"identical", "Case Owner First Name", "Case Owner First Name", domain.VerdictExactMatch},
		{"both empty", "", "", domain.VerdictExactMatch},
		{"leading and doubled spaces", " Case  Owner First Name", "Case Owner First Name", domain.VerdictWhitespaceDifference},
		{"tab vs space", "Due\tDate", "Due Date", domain.VerdictWhitespaceDifference},
		{"case only", "Case Type", "CASE TYPE", domain.VerdictCaseDifference},
		{"transposed letters", "Submsission", "Submission", domain.VerdictSpellingError},
		{"reordered words", "a b", "b a", domain.VerdictWordOrderDifference},
		{"reordered long words", "Date Due Visit", "Visit Due Date", domain.VerdictWordOrderDifference},
		{"actual has extra word", "a b", "a b c", domain.VerdictExtraWordsInActual},
		{"actual lacks a word", "a b c", "a b", domain.VerdictMissingWordsInActual},
		{"unrelated", "Status", "Region", domain.VerdictContentDifference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := labeldiff.Classify(tt.expected, tt.actual)
			assert.Equal(t, tt.want, got.Verdict)
			assert.NotEmpty(t, got.Description)
		})
	}
}

func TestClassify_SelfIsExactMatch(t *testing.T) {
	for _, s := range []string{"", " ", "x", "Case #", "  Padded  ", "90 Day Visit Compliant"} {
		assert.Equal(t, domain.VerdictExactMatch, labeldiff.Classify(s, s).Verdict, "label %q", s)
	}
}

func TestClassify_SimilarityBoundaryIsExclusive(t *testing.T) {
	// 4 matching characters out of 10 total gives exactly 0.8.
	assert.InDelta(t, 0.8, labeldiff.Similarity("abcde", "abcdf"), 1e-12)

	got := labeldiff.Classify("abcde", "abcdf")
	assert.NotEqual(t, domain.VerdictSpellingError, got.Verdict)
	assert.Equal(t, domain.VerdictContentDifference, got.Verdict)
}

func TestClassify_SpellingErrorReportsScore(t *testing.T) {
	got := labeldiff.Classify("Submsission", "Submission")

	assert.Equal(t, domain.VerdictSpellingError, got.Verdict)
	assert.Greater(t, got.Similarity, labeldiff.SpellingThreshold)
	assert.Equal(t, "Spelling error (similarity: 0.95)", got.Description)
}

func TestClassify_SpellingCheckIgnoresCase(t *testing.T) {
	got := labeldiff.Classify("CONTACT LOG DATE", "contact log dates")
	assert.Equal(t, domain.VerdictSpellingError, got.Verdict)
}

func TestClassify_WordContainmentIgnoresRepeats(t *testing.T) {
	got := labeldiff.Classify("visit visit date", "date of visit")
	assert.Equal(t, domain.VerdictExtraWordsInActual, got.Verdict)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, labeldiff.Similarity("", ""))
	assert.Equal(t, 0.0, labeldiff.Similarity("abc", ""))
	assert.Equal(t, 1.0, labeldiff.Similarity("status", "status"))
	assert.InDelta(t, 20.0/21.0, labeldiff.Similarity("submsission", "submission"), 1e-9)
}

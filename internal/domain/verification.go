package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Verdict classifies why two labels at the same position differ.
type Verdict string

const (
	VerdictExactMatch           Verdict = "exact_match"
	VerdictWhitespaceDifference Verdict = "whitespace_difference"
	VerdictCaseDifference       Verdict = "case_difference"
	VerdictSpellingError        Verdict = "spelling_error"
	VerdictWordOrderDifference  Verdict = "word_order_difference"
	VerdictExtraWordsInActual   Verdict = "extra_words_in_actual"
	VerdictMissingWordsInActual Verdict = "missing_words_in_actual"
	VerdictContentDifference    Verdict = "content_difference"
	VerdictCountMismatch        Verdict = "count_mismatch"
)

// SectionErrorKind tells a caller why a reconciliation section could not be checked.
type SectionErrorKind string

const (
	SectionErrorSchema SectionErrorKind = "schema"
	SectionErrorRead   SectionErrorKind = "read"
	// SectionErrorNoRecords marks a section whose source has no rows in scope.
	// Nothing in it can be checked, but the run is not failed for it.
	SectionErrorNoRecords SectionErrorKind = "no_records"
)

// Blocking reports whether a section error of this kind fails the run.
func (k SectionErrorKind) Blocking() bool {
	return k != SectionErrorNoRecords
}

// Discrepancy is one positional difference found by a structural comparison.
// Position is 1-based; a count mismatch has position 0 and carries both totals.
type Discrepancy struct {
	Position      int     `json:"position" yaml:"position"`
	Expected      string  `json:"expected" yaml:"expected"`
	Actual        string  `json:"actual" yaml:"actual"`
	Verdict       Verdict `json:"verdict" yaml:"verdict"`
	Description   string  `json:"description" yaml:"description"`
	Similarity    float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	ExpectedCount int     `json:"expected_count,omitempty" yaml:"expected_count,omitempty"`
	ActualCount   int     `json:"actual_count,omitempty" yaml:"actual_count,omitempty"`
}

// ComparisonResult is the outcome of comparing two ordered label lists.
type ComparisonResult struct {
	Passed  bool          `json:"passed" yaml:"passed"`
	Message string        `json:"message" yaml:"message"`
	Details []Discrepancy `json:"details" yaml:"details"`
}

// CheckResult is a single pass/fail assertion.
type CheckResult struct {
	Name    string `json:"name" yaml:"name"`
	Passed  bool   `json:"passed" yaml:"passed"`
	Message string `json:"message" yaml:"message"`
}

// RecordDetail holds the date values seen for one spot-checked record id.
// Duplicate rows for the same id are folded together.
type RecordDetail struct {
	ID            string   `json:"id" yaml:"id"`
	FirstDates    []string `json:"first_dates" yaml:"first_dates"`
	SecondDates   []string `json:"second_dates" yaml:"second_dates"`
	HasFirstDate  bool     `json:"has_first_date" yaml:"has_first_date"`
	HasSecondDate bool     `json:"has_second_date" yaml:"has_second_date"`
}

// Complete reports whether both dates were present on at least one row.
func (r RecordDetail) Complete() bool {
	return r.HasFirstDate && r.HasSecondDate
}

// RecordCheckResult is the outcome of a record spot check. Records are listed
// in the order their ids were requested.
type RecordCheckResult struct {
	Passed     bool           `json:"passed" yaml:"passed"`
	Message    string         `json:"message" yaml:"message"`
	FoundAll   bool           `json:"found_all" yaml:"found_all"`
	MissingIDs []string       `json:"missing_ids" yaml:"missing_ids"`
	Records    []RecordDetail `json:"records" yaml:"records"`
	// Error is set when the records could not be looked up at all; MissingIDs
	// is then empty.
	Error *SectionError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Record returns the detail for id, if that id was found.
func (r RecordCheckResult) Record(id string) (RecordDetail, bool) {
	for _, d := range r.Records {
		if d.ID == id {
			return d, true
		}
	}
	return RecordDetail{}, false
}

// ReconciliationCell compares one recomputed summary value with the published one.
// Actual is nil when the coordinate lies outside the summary sheet.
type ReconciliationCell struct {
	Cell       string   `json:"cell" yaml:"cell"`
	Calculated float64  `json:"calculated" yaml:"calculated"`
	Actual     *float64 `json:"actual" yaml:"actual"`
	Match      bool     `json:"match" yaml:"match"`
	Section    string   `json:"section" yaml:"section"`
	RowType    string   `json:"row_type" yaml:"row_type"`
	CaseType   string   `json:"case_type" yaml:"case_type"`
	Report     string   `json:"report,omitempty" yaml:"report,omitempty"`
}

// SectionError records a section that could not be checked at all.
type SectionError struct {
	Section string           `json:"section" yaml:"section"`
	Kind    SectionErrorKind `json:"kind" yaml:"kind"`
	Message string           `json:"message" yaml:"message"`
}

// ReconciliationResult collects every reconciled cell keyed by A1 coordinate.
type ReconciliationResult struct {
	Passed      bool                          `json:"passed" yaml:"passed"`
	Message     string                        `json:"message" yaml:"message"`
	Cells       map[string]ReconciliationCell `json:"cells" yaml:"cells"`
	Errors      []SectionError                `json:"errors" yaml:"errors"`
	TotalCells  int                           `json:"total_cells" yaml:"total_cells"`
	PassedCells int                           `json:"passed_cells" yaml:"passed_cells"`
	FailedCells int                           `json:"failed_cells" yaml:"failed_cells"`
}

// SortedCells returns the reconciled cells in sheet order: by row, then column.
func (r ReconciliationResult) SortedCells() []ReconciliationCell {
	out := make([]ReconciliationCell, 0, len(r.Cells))
	for _, c := range r.Cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, ci := splitCoordinate(out[i].Cell)
		rj, cj := splitCoordinate(out[j].Cell)
		if ri != rj {
			return ri < rj
		}
		if len(ci) != len(cj) {
			return len(ci) < len(cj)
		}
		return ci < cj
	})
	return out
}

// splitCoordinate splits an A1 coordinate into its row number and column letters.
func splitCoordinate(cell string) (int, string) {
	i := strings.IndexFunc(cell, unicode.IsDigit)
	if i < 0 {
		return 0, cell
	}
	row, _ := strconv.Atoi(cell[i:])
	return row, cell[:i]
}

// ColumnComparison is the header comparison of one standard report.
type ColumnComparison struct {
	Standard int              `json:"standard" yaml:"standard"`
	Result   ComparisonResult `json:"result" yaml:"result"`
}

// CoverResult groups the cover page assertions.
type CoverResult struct {
	Title    CheckResult `json:"title" yaml:"title"`
	Version  CheckResult `json:"version" yaml:"version"`
	ETLDates CheckResult `json:"etl_dates" yaml:"etl_dates"`
}

// Passed reports whether every cover assertion passed.
func (c CoverResult) Passed() bool {
	return c.Title.Passed && c.Version.Passed && c.ETLDates.Passed
}

// Report is the full result tree of one verification run.
type Report struct {
	Passed         bool                 `json:"passed" yaml:"passed"`
	Cover          CoverResult          `json:"cover" yaml:"cover"`
	Columns        []ColumnComparison   `json:"columns" yaml:"columns"`
	SpotCheck      RecordCheckResult    `json:"spot_check" yaml:"spot_check"`
	SummaryFields  ComparisonResult     `json:"summary_fields" yaml:"summary_fields"`
	Assertions     []CheckResult        `json:"assertions" yaml:"assertions"`
	Reconciliation ReconciliationResult `json:"reconciliation" yaml:"reconciliation"`
}

// VerificationRun is a persisted verification of one document pair.
type VerificationRun struct {
	ID              uuid.UUID `db:"id" json:"id"`
	DesignSpecName  string    `db:"design_spec_name" json:"design_spec_name"`
	ReportName      string    `db:"report_name" json:"report_name"`
	DesignSpecKey   string    `db:"design_spec_key" json:"design_spec_key"`
	ReportKey       string    `db:"report_key" json:"report_key"`
	ExpectedVersion string    `db:"expected_version" json:"expected_version"`
	Passed          bool      `db:"passed" json:"passed"`
	Report          *Report   `db:"-" json:"report,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// SourceKind names one of the two documents of a run.
type SourceKind string

const (
	SourceDesignSpec SourceKind = "design_spec"
	SourceReport     SourceKind = "report"
)

// Valid reports whether k is a known document kind.
func (k SourceKind) Valid() bool {
	return k == SourceDesignSpec || k == SourceReport
}

// SourceKey returns the storage key of the document of kind k.
func (r *VerificationRun) SourceKey(k SourceKind) string {
	if k == SourceDesignSpec {
		return r.DesignSpecKey
	}
	return r.ReportKey
}

// RunFilter narrows a run listing. Passed nil lists every run.
type RunFilter struct {
	Passed *bool
	Offset int
	Limit  int
}

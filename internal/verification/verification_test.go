package verification_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportverify/internal/config"
	"reportverify/internal/domain"
	"reportverify/internal/sheet"
	"reportverify/internal/verification"
)

var caseIDs = []string{"12891050", "13141575", "11739608", "13038729", "13155126"}

func standardHeader(n int) []any {
	days := map[int]string{1: "7", 2: "30", 3: "90"}[n]
	compliant := days + " Day Private Visit Compliant"
	if n == 3 {
		compliant = "90 Day Visit Compliant"
	}
	h := []any{
		"Case #",
		"Case Type",
		"Incorrect Change Reason",
		compliant,
		"Primary In Care Placement Type",
		days + " Day Private Visit Exclusion - Closed Prior to Due Date",
	}
	if n == 2 {
		h = append(h, "30 Day Private Visit Due Date - 2025", "30 Day Private Visit Contact Log Start Date - Extension")
	}
	return h
}

func summaryLabels() []string {
	labels := make([]string, 37)
	for i := range labels {
		labels[i] = fmt.Sprintf("Summary line %d", i+1)
	}
	labels[0] = "Summary Total"
	return labels
}

type fixture struct {
	designHeaders map[int][]any
	reportHeaders map[int][]any
	summary       map[[2]int]any
	withSummary   bool
}

func newFixture() *fixture {
	f := &fixture{
		designHeaders: map[int][]any{},
		reportHeaders: map[int][]any{},
		// 30-day child in care: total, compliant, non-compliant, rate
		summary:     map[[2]int]any{{7, 1}: 5, {8, 1}: 5, {9, 1}: 0, {10, 1}: 1.0},
		withSummary: true,
	}
	for n := 1; n <= 3; n++ {
		f.designHeaders[n] = standardHeader(n)
		f.reportHeaders[n] = standardHeader(n)
	}
	return f
}

func (f *fixture) design() *sheet.Workbook {
	sheets := make([]*sheet.Sheet, 0, 4)
	for n := 1; n <= 3; n++ {
		rows := make([][]any, 9)
		rows[0] = []any{fmt.Sprintf("Standard Report %d", n)}
		rows[8] = f.designHeaders[n]
		sheets = append(sheets, sheet.FromValues(fmt.Sprintf("Standard Report %d", n), rows))
	}
	labels := summaryLabels()
	rows := make([][]any, len(labels))
	for i, l := range labels {
		rows[i] = []any{l}
	}
	sheets = append(sheets, sheet.FromValues("Summary Report", rows))
	return sheet.NewWorkbook(sheets...)
}

func (f *fixture) report() *sheet.Workbook {
	sheets := []*sheet.Sheet{sheet.FromValues("Cover", [][]any{
		{"CQ091 - QIP 9, 11 - KS2 - Kinship Service/Child in Care"},
		{"Version: 1.3"},
		{"ETL - Started: 01-Mar-2025 09:15:00 AM; CM - Completed: 01-Mar-2025 11:40:12 AM"},
	})}

	for n := 1; n <= 3; n++ {
		rows := [][]any{{fmt.Sprintf("Standard %d Report", n)}, f.reportHeaders[n]}
		if n == 2 {
			for _, id := range caseIDs {
				rows = append(rows, []any{id, "Child in Care", "No", "Compliant", "Foster Home", "No", "2025-03-01", "2025-02-25"})
			}
		} else {
			// in scope for the visit section, counted under no case type
			rows = append(rows, []any{"10000001", "Unassigned", "No", "", "", ""})
		}
		sheets = append(sheets, sheet.FromValues(fmt.Sprintf("Standard %d Report", n), rows))
	}

	if f.withSummary {
		labels := summaryLabels()
		rows := make([][]any, len(labels))
		for i, l := range labels {
			rows[i] = []any{l, 0, 0, 0, 0}
		}
		for at, v := range f.summary {
			rows[at[0]][at[1]] = v
		}
		sheets = append(sheets, sheet.FromValues("Summary Total", rows))
	}
	return sheet.NewWorkbook(sheets...)
}

func TestRun_AllChecksPass(t *testing.T) {
	f := newFixture()

	got := verification.Run(f.design(), f.report(), verification.DefaultProfile())

	assert.True(t, got.Cover.Passed())
	require.Len(t, got.Columns, 3)
	for _, c := range got.Columns {
		assert.True(t, c.Result.Passed, "standard %d: %s", c.Standard, c.Result.Message)
	}
	assert.True(t, got.SpotCheck.Passed, got.SpotCheck.Message)
	assert.True(t, got.SummaryFields.Passed, got.SummaryFields.Message)
	assert.Len(t, got.Assertions, 3)
	assert.True(t, got.Reconciliation.Passed, got.Reconciliation.Message)
	assert.Equal(t, 92, got.Reconciliation.TotalCells)
	assert.True(t, got.Passed)
}

func TestRun_IsDeterministic(t *testing.T) {
	f := newFixture()
	f.reportHeaders[1][0] = "Case  #"
	f.summary[[2]int{2, 3}] = 4
	design, report := f.design(), f.report()

	first := verification.Run(design, report, verification.DefaultProfile())
	second := verification.Run(design, report, verification.DefaultProfile())

	assert.False(t, first.Passed)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRun_ColumnWhitespaceDifference(t *testing.T) {
	f := newFixture()
	f.designHeaders[1] = []any{"Case Owner  First Name", "Status"}
	f.reportHeaders[1] = []any{"Case Owner First Name", "Status"}

	got := verification.Run(f.design(), f.report(), verification.DefaultProfile())

	std1 := got.Columns[0].Result
	assert.False(t, std1.Passed)
	require.Len(t, std1.Details, 1)
	assert.Equal(t, domain.VerdictWhitespaceDifference, std1.Details[0].Verdict)
	assert.False(t, got.Passed)

	// the later checks still ran
	assert.True(t, got.Columns[1].Result.Passed)
	assert.True(t, got.SpotCheck.Passed)
}

func TestRun_SummaryMismatchFailsOverall(t *testing.T) {
	f := newFixture()
	f.summary[[2]int{7, 1}] = 6

	got := verification.Run(f.design(), f.report(), verification.DefaultProfile())

	assert.False(t, got.Reconciliation.Passed)
	assert.Equal(t, 1, got.Reconciliation.FailedCells)
	assert.False(t, got.Reconciliation.Cells["B8"].Match)
	assert.False(t, got.Passed)
}

func TestRun_MissingSheetsAreReadFailures(t *testing.T) {
	f := newFixture()
	f.withSummary = false

	got := verification.Run(f.design(), f.report(), verification.DefaultProfile())

	assert.False(t, got.SummaryFields.Passed)
	assert.Contains(t, got.SummaryFields.Message, "Error reading fields")
	assert.False(t, got.Reconciliation.Passed)
	require.Len(t, got.Reconciliation.Errors, 1)
	assert.Equal(t, domain.SectionErrorRead, got.Reconciliation.Errors[0].Kind)
	assert.True(t, got.SpotCheck.Passed)
}

func TestRun_NilWorkbooks(t *testing.T) {
	var got *domain.Report
	require.NotPanics(t, func() {
		got = verification.Run(nil, nil, verification.DefaultProfile())
	})

	assert.False(t, got.Passed)
	assert.False(t, got.Cover.Passed())
	assert.False(t, got.SpotCheck.Passed)
	assert.Empty(t, got.SpotCheck.MissingIDs)
	require.NotNil(t, got.SpotCheck.Error)
	assert.Equal(t, domain.SectionErrorRead, got.SpotCheck.Error.Kind)
	for _, c := range got.Columns {
		assert.False(t, c.Result.Passed)
	}
}

func TestRun_SpotCheckMissingCase(t *testing.T) {
	f := newFixture()
	p := verification.DefaultProfile()
	p.SpotCheckIDs = append(p.SpotCheckIDs, "99999999")

	got := verification.Run(f.design(), f.report(), p)

	assert.False(t, got.SpotCheck.Passed)
	assert.Equal(t, []string{"99999999"}, got.SpotCheck.MissingIDs)
	assert.False(t, got.Passed)
}

func TestProfileFrom(t *testing.T) {
	p := verification.ProfileFrom(&config.VerifyConfig{ExpectedVersion: "1.4", VersionCell: "D3", SpotCheckIDs: []string{"1"}})
	assert.Equal(t, "1.4", p.ExpectedVersion)
	assert.Equal(t, "D3", p.VersionCell)
	assert.Equal(t, []string{"1"}, p.SpotCheckIDs)
	assert.Equal(t, verification.DefaultProfile().Title, p.Title)

	p = verification.ProfileFrom(&config.VerifyConfig{})
	assert.Equal(t, verification.DefaultProfile().SpotCheckIDs, p.SpotCheckIDs)
	assert.Empty(t, p.VersionCell)
}

package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reportverify/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Check",
	"Section",
	"Location",
	"Expected",
	"Actual",
	"Verdict",
	"Detail",
}

// Writer wraps csv.Writer for exporting verification findings as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteReport writes one row per failed finding of r: cover checks, label
// discrepancies, spot check gaps, section errors and mismatched cells.
func (w *Writer) WriteReport(r *domain.Report) error {
	for _, row := range reportRows(r) {
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func reportRows(r *domain.Report) [][]string {
	var rows [][]string

	for _, c := range []domain.CheckResult{r.Cover.Title, r.Cover.Version, r.Cover.ETLDates} {
		if !c.Passed {
			rows = append(rows, []string{"cover", c.Name, "", "", "", "", c.Message})
		}
	}

	for _, c := range r.Columns {
		section := fmt.Sprintf("Standard %d", c.Standard)
		for _, d := range c.Result.Details {
			rows = append(rows, discrepancyRow("columns", section, d))
		}
	}
	for _, d := range r.SummaryFields.Details {
		rows = append(rows, discrepancyRow("summary_fields", "Summary Report", d))
	}

	if e := r.SpotCheck.Error; e != nil {
		rows = append(rows, []string{"spot_check", e.Section, "", "", "", string(e.Kind), e.Message})
	}
	for _, id := range r.SpotCheck.MissingIDs {
		rows = append(rows, []string{"spot_check", "", id, "present", "missing", "", "Case number not present in report"})
	}
	for _, d := range r.SpotCheck.Records {
		if d.Complete() {
			continue
		}
		rows = append(rows, []string{"spot_check", "", d.ID, "both dates", recordDates(d), "", "Data completeness issue"})
	}

	for _, e := range r.Reconciliation.Errors {
		rows = append(rows, []string{"reconciliation", e.Section, "", "", "", string(e.Kind), e.Message})
	}
	for _, c := range r.Reconciliation.SortedCells() {
		if c.Match {
			continue
		}
		actual := ""
		if c.Actual != nil {
			actual = formatNumber(*c.Actual)
		}
		detail := strings.TrimSpace(c.RowType + " " + c.CaseType)
		if c.Report != "" {
			detail += " (" + c.Report + ")"
		}
		rows = append(rows, []string{"reconciliation", c.Section, c.Cell, formatNumber(c.Calculated), actual, "", detail})
	}
	return rows
}

func discrepancyRow(check, section string, d domain.Discrepancy) []string {
	location := ""
	if d.Position > 0 {
		location = strconv.Itoa(d.Position)
	}
	expected, actual := d.Expected, d.Actual
	if d.Verdict == domain.VerdictCountMismatch {
		expected, actual = strconv.Itoa(d.ExpectedCount), strconv.Itoa(d.ActualCount)
	}
	return []string{check, section, location, expected, actual, string(d.Verdict), d.Description}
}

func recordDates(d domain.RecordDetail) string {
	var missing []string
	if !d.HasFirstDate {
		missing = append(missing, "due date missing")
	}
	if !d.HasSecondDate {
		missing = append(missing, "contact log date missing")
	}
	return strings.Join(missing, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a report name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized findings filename for a report.
// Format: {sanitized_report_name}_findings_{YYYY-MM-DD}.{ext}
func BuildFilename(reportName, ext string, at time.Time) string {
	base := strings.TrimSuffix(reportName, filepath.Ext(reportName))
	sanitized := SanitizeFilename(base)
	if sanitized == "" {
		sanitized = "report"
	}
	return fmt.Sprintf("%s_findings_%s.%s", sanitized, at.Format("2006-01-02"), ext)
}

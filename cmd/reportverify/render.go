package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"reportverify/internal/csvexport"
	"reportverify/internal/domain"
	"reportverify/internal/verification"
)

type format string

const (
	formatText format = "text"
	formatJSON format = "json"
	formatYAML format = "yaml"
	formatCSV  format = "csv"
)

func parseFormat(s string, allowed ...format) (format, error) {
	f := format(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("unsupported format %q (want %s)", s, strings.Join(names, ", "))
}

func render(w io.Writer, f format, out outcome, p verification.Profile) error {
	switch f {
	case formatJSON:
		return writeJSON(w, out)
	case formatYAML:
		return writeYAML(w, out)
	case formatCSV:
		if _, err := w.Write(csvexport.BOM); err != nil {
			return err
		}
		cw := csvexport.NewWriter(w)
		if err := cw.WriteHeader(); err != nil {
			return err
		}
		if err := cw.WriteReport(out.Result); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}
	tw := &textWriter{w: w}
	tw.outcome(out, p)
	return tw.err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	_, err = w.Write(b)
	return err
}

const rule = "================================================================================"

// textWriter keeps the first write error so the report reads straight through.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(layout string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, layout, args...)
}

func status(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func (t *textWriter) outcome(out outcome, p verification.Profile) {
	t.printf("Running CQ091 verification tests\n")
	t.printf("Design Spec: %s\n", out.DesignSpec)
	t.printf("Verification Report: %s\n", out.Report)
	t.printf("Expected version: %s\n", out.ExpectedVersion)
	t.printf("%s\n", rule)

	if out.Error != "" {
		t.printf("ERROR: %s\n", out.Error)
		return
	}
	r := out.Result

	t.printf("\n=== Cover Page Tests ===\n")
	for _, c := range []domain.CheckResult{r.Cover.Title, r.Cover.Version, r.Cover.ETLDates} {
		t.printf("%s: %s - %s\n", strings.ToUpper(c.Name), status(c.Passed), c.Message)
	}

	t.printf("\n=== Standard Report Column Tests ===\n")
	for _, c := range r.Columns {
		t.printf("STANDARD %d: %s - %s\n", c.Standard, status(c.Result.Passed), c.Result.Message)
		t.discrepancies("Column", c.Result.Details)
	}

	t.printf("\n=== Specific Cases Test ===\n")
	t.printf("SPECIFIC_CASES: %s - %s\n", status(r.SpotCheck.Passed), r.SpotCheck.Message)
	if e := r.SpotCheck.Error; e != nil {
		t.printf("   ERROR %s (%s): %s\n", e.Section, e.Kind, e.Message)
	}
	if len(r.SpotCheck.MissingIDs) > 0 {
		t.printf("   Missing cases: %s\n", strings.Join(r.SpotCheck.MissingIDs, ", "))
	}
	for _, d := range r.SpotCheck.Records {
		t.printf("   Case %s: Due Date=%s, Contact Log Date=%s\n", d.ID, dateList(d.FirstDates), dateList(d.SecondDates))
	}

	t.printf("\n=== Summary Report Test ===\n")
	t.printf("SUMMARY: %s - %s\n", status(r.SummaryFields.Passed), r.SummaryFields.Message)
	t.discrepancies("Row", r.SummaryFields.Details)

	t.printf("\n=== Sensitivity, Formula and Contact Log Tests ===\n")
	for _, a := range r.Assertions {
		t.printf("%s: %s - %s\n", strings.ToUpper(a.Name), status(a.Passed), a.Message)
	}

	t.printf("\n=== Summary Total Sheet Verification ===\n")
	t.reconciliation(r.Reconciliation, p)

	t.printf("\n%s\n=== FINAL RESULT ===\n", rule)
	if r.Passed {
		t.printf("ALL CQ091 TESTS PASSED\n")
	} else {
		t.printf("SOME CQ091 TESTS FAILED\n")
	}
}

func (t *textWriter) discrepancies(unit string, details []domain.Discrepancy) {
	for _, d := range details {
		if d.Verdict == domain.VerdictCountMismatch {
			t.printf("   %s count mismatch: Design=%d, Verification=%d\n", unit, d.ExpectedCount, d.ActualCount)
			continue
		}
		t.printf("   %s %d: %s - Design='%s' vs Verification='%s'\n", unit, d.Position, d.Description, d.Expected, d.Actual)
	}
}

func (t *textWriter) reconciliation(r domain.ReconciliationResult, p verification.Profile) {
	for _, e := range r.Errors {
		t.printf("   ERROR %s (%s): %s\n", e.Section, e.Kind, e.Message)
	}

	cells := r.SortedCells()
	rates := map[[2]string]bool{}
	for _, sec := range p.Catalog.Sections {
		for _, row := range sec.Rows {
			rates[[2]string{sec.Name, row.RowType}] = row.Value.IsRate()
		}
	}

	for _, sec := range p.Catalog.Sections {
		var rowTypes []string
		byType := map[string][]domain.ReconciliationCell{}
		for _, c := range cells {
			if c.Section != sec.Name {
				continue
			}
			if _, ok := byType[c.RowType]; !ok {
				rowTypes = append(rowTypes, c.RowType)
			}
			byType[c.RowType] = append(byType[c.RowType], c)
		}
		if len(rowTypes) == 0 {
			continue
		}

		t.printf("\n   %s:\n   %s\n", sec.Title, strings.Repeat("-", 30))
		for _, rt := range rowTypes {
			t.printf("   %s:\n", rowTypeTitle(rt))
			rate := rates[[2]string{sec.Name, rt}]
			for _, c := range byType[rt] {
				t.printf("     %s: %s Actual: %s, Calculated: %s\n",
					c.Cell, status(c.Match), cellValue(c.Actual, rate), cellValue(&c.Calculated, rate))
			}
		}
	}

	t.printf("\n   Total Cells Verified: %d\n", r.TotalCells)
	t.printf("   Cells Passed: %d\n", r.PassedCells)
	t.printf("   Cells Failed: %d\n", r.FailedCells)
	if r.TotalCells > 0 {
		t.printf("   Success Rate: %.1f%%\n", float64(r.PassedCells)*100/float64(r.TotalCells))
	}
	t.printf("   %s\n", r.Message)
}

func rowTypeTitle(rt string) string {
	words := strings.FieldsFunc(rt, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func cellValue(v *float64, rate bool) string {
	if v == nil {
		return "N/A"
	}
	if rate {
		return fmt.Sprintf("%.2f%%", *v*100)
	}
	return fmt.Sprintf("%g", *v)
}

func dateList(ds []string) string {
	if len(ds) == 0 {
		return "N/A"
	}
	return strings.Join(ds, ", ")
}

func renderBatch(w io.Writer, f format, outs []outcome, p verification.Profile) error {
	switch f {
	case formatJSON:
		return writeJSON(w, outs)
	case formatYAML:
		return writeYAML(w, outs)
	}

	tw := &textWriter{w: w}
	passed := 0
	for i, out := range outs {
		if i > 0 {
			tw.printf("\n\n")
		}
		tw.outcome(out, p)
		if out.Passed {
			passed++
		}
	}
	tw.printf("\n%s\nReports: %d, passed: %d, failed: %d\n", rule, len(outs), passed, len(outs)-passed)
	return tw.err
}

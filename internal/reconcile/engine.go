package reconcile

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"reportverify/internal/domain"
	"reportverify/internal/sheet"
)

// Reconcile recomputes every summary cell declared in catalog from the detail
// tables and compares it with the published value. Column roles are resolved
// once per detail table. A section whose sources lack a required column is
// reported as a section error and contributes no cells.
func Reconcile(details map[string]*sheet.Table, summary *sheet.Sheet, catalog Catalog) domain.ReconciliationResult {
	bindings := make(map[string]*sheet.Binding, len(catalog.Sources))
	for _, src := range catalog.Sources {
		if t, ok := details[src.Sheet]; ok && t != nil {
			bindings[src.Sheet] = sheet.Resolve(t, src.Columns...)
		}
	}

	res := domain.ReconciliationResult{
		Cells:  make(map[string]domain.ReconciliationCell),
		Errors: []domain.SectionError{},
	}
	for _, sec := range catalog.Sections {
		cells, serr := reconcileSection(catalog, sec, bindings, summary)
		if serr != nil {
			res.Errors = append(res.Errors, *serr)
			continue
		}
		for _, c := range cells {
			res.Cells[c.Cell] = c
		}
	}

	for _, c := range res.Cells {
		res.TotalCells++
		if c.Match {
			res.PassedCells++
		}
	}
	res.FailedCells = res.TotalCells - res.PassedCells
	res.Passed = res.FailedCells == 0 && blocking(res.Errors) == 0 && res.TotalCells > 0
	res.Message = summarize(res)
	return res
}

func blocking(errs []domain.SectionError) int {
	n := 0
	for _, e := range errs {
		if e.Kind.Blocking() {
			n++
		}
	}
	return n
}

func reconcileSection(catalog Catalog, sec SectionSpec, bindings map[string]*sheet.Binding, summary *sheet.Sheet) ([]domain.ReconciliationCell, *domain.SectionError) {
	for _, row := range sec.Rows {
		if _, ok := catalog.Source(row.Source); !ok {
			return nil, &domain.SectionError{
				Section: sec.Name,
				Kind:    domain.SectionErrorSchema,
				Message: fmt.Sprintf("no source declared for detail sheet %q", row.Source),
			}
		}
		b, ok := bindings[row.Source]
		if !ok {
			return nil, &domain.SectionError{
				Section: sec.Name,
				Kind:    domain.SectionErrorRead,
				Message: fmt.Sprintf("detail sheet %q not available", row.Source),
			}
		}
		if err := b.Require(row.Value.Roles()...); err != nil {
			return nil, &domain.SectionError{Section: sec.Name, Kind: domain.SectionErrorSchema, Message: err.Error()}
		}
	}

	if serr := checkScope(sec, bindings); serr != nil {
		return nil, serr
	}

	cells := make([]domain.ReconciliationCell, 0, len(sec.Rows)*4)
	for offset, row := range sec.Rows {
		b := bindings[row.Source]
		summaryRow := sec.StartRow + offset
		for _, ct := range CaseTypes() {
			calculated := 0.0
			if !row.constantZero(ct) {
				calculated = row.Value.Eval(b, ct)
			}
			cells = append(cells, newCell(sec, row, ct, summaryRow, calculated, summary))
		}
	}
	return cells, nil
}

// checkScope reports a section whose sources have no row in its scope.
func checkScope(sec SectionSpec, bindings map[string]*sheet.Binding) *domain.SectionError {
	if sec.Scope == nil {
		return nil
	}
	seen := make(map[string]bool, len(sec.Rows))
	for _, row := range sec.Rows {
		if seen[row.Source] {
			continue
		}
		seen[row.Source] = true
		b := bindings[row.Source]
		if err := b.Require(sec.Scope.Roles()...); err != nil {
			return &domain.SectionError{Section: sec.Name, Kind: domain.SectionErrorSchema, Message: err.Error()}
		}
		if Matching(b, *sec.Scope) == 0 {
			return &domain.SectionError{
				Section: sec.Name,
				Kind:    domain.SectionErrorNoRecords,
				Message: fmt.Sprintf("No records found with %s", sec.Scope.Name),
			}
		}
	}
	return nil
}

func newCell(sec SectionSpec, row RowSpec, ct CaseType, summaryRow int, calculated float64, summary *sheet.Sheet) domain.ReconciliationCell {
	name, _ := excelize.CoordinatesToCellName(ct.Column+1, summaryRow+1)
	c := domain.ReconciliationCell{
		Cell:       name,
		Calculated: calculated,
		Section:    sec.Name,
		RowType:    row.RowType,
		CaseType:   ct.Name,
		Report:     row.Report,
	}
	actual, ok := PublishedValue(summary, summaryRow, ct.Column)
	if !ok {
		return c
	}
	c.Actual = &actual
	if row.Tolerance > 0 {
		c.Match = math.Abs(calculated-actual) < row.Tolerance
	} else {
		c.Match = calculated == actual
	}
	return c
}

// PublishedValue reads a summary value. ok is false when the coordinate lies
// outside the sheet; empty and non-numeric cells read as 0.
func PublishedValue(summary *sheet.Sheet, row, col int) (float64, bool) {
	if summary == nil {
		return 0, false
	}
	cell, ok := summary.Cell(row, col)
	if !ok {
		return 0, false
	}
	v, ok := cell.Float()
	if !ok {
		return 0, true
	}
	return v, true
}

func summarize(res domain.ReconciliationResult) string {
	switch {
	case res.TotalCells == 0 && len(res.Errors) == 0:
		return "No summary cells to verify"
	case res.Passed && len(res.Errors) == 0:
		return fmt.Sprintf("All %d summary cells match", res.TotalCells)
	case res.Passed:
		return fmt.Sprintf("All %d summary cells match; %d sections had no records to verify", res.TotalCells, len(res.Errors))
	case len(res.Errors) == 0:
		return fmt.Sprintf("%d of %d summary cells do not match", res.FailedCells, res.TotalCells)
	default:
		return fmt.Sprintf("%d of %d summary cells do not match; %d sections could not be verified",
			res.FailedCells, res.TotalCells, len(res.Errors))
	}
}

package reconcile

import "reportverify/internal/sheet"

// RateTolerance is the absolute difference under which two ratios match.
const RateTolerance = 0.01

// Source declares how to find the column roles of one detail sheet.
type Source struct {
	Sheet   string
	Columns []sheet.ColumnMatcher
}

// RowSpec is one summary row of a section. Its summary row is the section
// start plus its index in SectionSpec.Rows.
type RowSpec struct {
	RowType string
	Report  string
	Source  string
	Value   Measure
	// Tolerance above zero compares with |calculated - actual| < Tolerance.
	Tolerance float64
	// Only, when set, restricts computation to one case type; every other
	// case type is a constant zero.
	Only string
	// Zero lists case types that are a constant zero for this row.
	Zero []string
}

func (r RowSpec) constantZero(ct CaseType) bool {
	if r.Only != "" && r.Only != ct.Name {
		return true
	}
	for _, z := range r.Zero {
		if z == ct.Name {
			return true
		}
	}
	return false
}

// SectionSpec is a named group of consecutive summary rows. When Scope is set,
// a section whose sources hold no row satisfying it is not checked.
type SectionSpec struct {
	Name     string
	Title    string
	StartRow int
	Scope    *Predicate
	Rows     []RowSpec
}

// Catalog is the full set of detail sources and summary sections.
type Catalog struct {
	Sources  []Source
	Sections []SectionSpec
}

// Source returns the declared source for a sheet name.
func (c Catalog) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Sheet == name {
			return s, true
		}
	}
	return Source{}, false
}

// Detail sheet names of the CQ091 report.
const (
	SheetStandard1 = "Standard 1 Report"
	SheetStandard2 = "Standard 2 Report"
	SheetStandard3 = "Standard 3 Report"
)

type visitReport struct {
	name       string
	sheet      string
	compliant  string
	days       string
	incomplete bool
}

var visitReports = []visitReport{
	{name: "7-day", sheet: SheetStandard1, compliant: "7 day private visit compliant", days: "7"},
	{name: "30-day", sheet: SheetStandard2, compliant: "30 day private visit compliant", days: "30"},
	{name: "90-day", sheet: SheetStandard3, compliant: "90 day visit compliant", days: "90", incomplete: true},
}

var correctChangeReason = Predicate{Name: "Incorrect Change Reason = 'No'", Filters: []Filter{Equals(RoleChangeReason, "no")}}

func (v visitReport) source() Source {
	return Source{
		Sheet: v.sheet,
		Columns: []sheet.ColumnMatcher{
			sheet.Match(RoleCompliant, v.compliant),
			sheet.Match(RoleChangeReason, "incorrect change reason"),
			sheet.Match(RoleCaseType, "case type"),
			sheet.Match(RolePlacement, "primary in care placement type"),
			sheet.Match(RoleExclusion, "exclusion", "closed prior to due date", v.days),
		},
	}
}

func (v visitReport) totalStatuses() []string {
	if v.incomplete {
		return []string{"Compliant", "Not Compliant", "Incomplete"}
	}
	return []string{"Compliant", "Not Compliant"}
}

func (v visitReport) nonCompliantStatuses() []string {
	if v.incomplete {
		return []string{"Not Compliant", "Incomplete"}
	}
	return []string{"Not Compliant"}
}

// visitSection counts visits by compliance status.
func (v visitReport) visitSection(title string, start int) SectionSpec {
	total := correctChangeReason.And("total", ExactIn(RoleCompliant, v.totalStatuses()...))
	compliant := correctChangeReason.And("compliant", ExactIn(RoleCompliant, "Compliant"))
	nonCompliant := correctChangeReason.And("non_compliant", ExactIn(RoleCompliant, v.nonCompliantStatuses()...))

	scope := correctChangeReason
	return SectionSpec{
		Name:     v.name,
		Title:    title,
		StartRow: start,
		Scope:    &scope,
		Rows: []RowSpec{
			{RowType: "total", Report: v.name, Source: v.sheet, Value: Count(total)},
			{RowType: "compliant", Report: v.name, Source: v.sheet, Value: Count(compliant)},
			{RowType: "non_compliant", Report: v.name, Source: v.sheet, Value: Count(nonCompliant)},
			{RowType: "compliance_rate", Report: v.name, Source: v.sheet, Value: Rate(compliant, total), Tolerance: RateTolerance},
		},
	}
}

// perReportSection emits one row per visit report. Child in care is never
// counted against the 90-day report.
func perReportSection(name, title string, start int, p Predicate) SectionSpec {
	rows := make([]RowSpec, 0, len(visitReports))
	for _, v := range visitReports {
		r := RowSpec{RowType: v.name, Report: v.name, Source: v.sheet, Value: Count(p)}
		if v.incomplete {
			r.Zero = []string{ChildInCare.Name}
		}
		rows = append(rows, r)
	}
	return SectionSpec{Name: name, Title: title, StartRow: start, Rows: rows}
}

// DefaultCatalog is the CQ091 "Summary Total" layout.
func DefaultCatalog() Catalog {
	sources := make([]Source, 0, len(visitReports))
	for _, v := range visitReports {
		sources = append(sources, v.source())
	}
	std3 := visitReports[2]

	return Catalog{
		Sources: sources,
		Sections: []SectionSpec{
			visitReports[0].visitSection("7-day Visits (Standard 1 Report)", 2),
			visitReports[1].visitSection("30-day Visits (Standard 2 Report)", 7),
			std3.visitSection("90-day Visits (Standard 3 Report)", 12),
			perReportSection("whereabouts-unknown", "Whereabouts Unknown (All Reports)", 18,
				correctChangeReason.And("whereabouts unknown", Equals(RolePlacement, "whereabouts unknown"))),
			perReportSection("exclusion-service-ended", "Exclusion - Service Ended (All Reports)", 23,
				Predicate{Name: "service ended", Filters: []Filter{Equals(RoleExclusion, "yes")}}),
			perReportSection("exclusion-data-entry", "Exclusion - Data Entry Issue (All Reports)", 28,
				Predicate{Name: "data entry issue", Filters: []Filter{Equals(RoleChangeReason, "yes"), NotEmpty(RoleCompliant)}}),
			{
				Name:     "information-only",
				Title:    "For Information Only (Standard 3 Report)",
				StartRow: 33,
				Rows: []RowSpec{{
					RowType: "incomplete-90-day-fcc",
					Report:  std3.name,
					Source:  std3.sheet,
					Value:   Count(Predicate{Name: "incomplete", Filters: []Filter{Equals(RoleCompliant, "incomplete")}}),
					Only:    FormalCustomaryCare.Name,
				}},
			},
			{
				Name:     "kinship-service-cases",
				Title:    "Kinship Service Cases (Standard 3 Report)",
				StartRow: 36,
				Rows: []RowSpec{{
					RowType: "90-day-placement-other",
					Report:  std3.name,
					Source:  std3.sheet,
					Value: Count(correctChangeReason.And("placement other",
						ExactIn(RoleCompliant, "Compliant", "Not Compliant"),
						Equals(RolePlacement, "other"))),
					Only: KinshipService.Name,
				}},
			},
		},
	}
}

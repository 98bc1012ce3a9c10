package verification

import (
	"fmt"

	"reportverify/internal/config"
	"reportverify/internal/reconcile"
	"reportverify/internal/sheet"
	"reportverify/internal/spotcheck"
)

// Profile fixes where each check finds its inputs in the two workbooks.
type Profile struct {
	Title           string
	ExpectedVersion string
	// VersionCell is an A1 coordinate on the cover read when no "Version:"
	// tag is printed. Empty disables the fallback.
	VersionCell string

	CoverSheet int

	Standards           []int
	DesignStandardSheet string
	DesignHeaderRow     int
	ReportStandardSheet string
	ReportHeaderRow     int
	DesignSummarySheet  string
	ReportSummarySheet  string
	SummaryLabelRows    int
	DetailHeaderRow     int
	SpotCheckSheet      string
	SpotCheckIDs        []string
	SpotCheckColumns    spotcheck.Columns
	ContactLogField     string
	ContactLogPurposes  []string
	Catalog             reconcile.Catalog
}

// DefaultProfile is the CQ091 layout.
func DefaultProfile() Profile {
	return Profile{
		Title:               "CQ091 - QIP 9, 11 - KS2 - Kinship Service/Child in Care",
		ExpectedVersion:     "1.3",
		CoverSheet:          0,
		Standards:           []int{1, 2, 3},
		DesignStandardSheet: "Standard Report %d",
		DesignHeaderRow:     8,
		ReportStandardSheet: "Standard %d Report",
		ReportHeaderRow:     1,
		DesignSummarySheet:  "Summary Report",
		ReportSummarySheet:  "Summary Total",
		SummaryLabelRows:    37,
		DetailHeaderRow:     1,
		SpotCheckSheet:      reconcile.SheetStandard2,
		SpotCheckIDs:        []string{"12891050", "13141575", "11739608", "13038729", "13155126"},
		SpotCheckColumns: spotcheck.Columns{
			ID:         sheet.Match(spotcheck.RoleID, "case", "#"),
			FirstDate:  sheet.Match(spotcheck.RoleFirstDate, "30 day private visit due date", "2025"),
			SecondDate: sheet.Match(spotcheck.RoleSecondDate, "30 day private visit contact log start date", "extension"),
		},
		ContactLogField:    "90 Day Private Visit Contact Log Start Date - Extension",
		ContactLogPurposes: []string{"Extension of Visit - 30 Day - Private", "Extension of Visit - 90 Day - Private"},
		Catalog:            reconcile.DefaultCatalog(),
	}
}

func (p Profile) designStandard(n int) string { return fmt.Sprintf(p.DesignStandardSheet, n) }

func (p Profile) reportStandard(n int) string { return fmt.Sprintf(p.ReportStandardSheet, n) }

// ProfileFrom applies the configured run defaults to the CQ091 layout.
func ProfileFrom(cfg *config.VerifyConfig) Profile {
	p := DefaultProfile()
	if cfg.Title != "" {
		p.Title = cfg.Title
	}
	if cfg.ExpectedVersion != "" {
		p.ExpectedVersion = cfg.ExpectedVersion
	}
	if cfg.VersionCell != "" {
		p.VersionCell = cfg.VersionCell
	}
	if len(cfg.SpotCheckIDs) > 0 {
		p.SpotCheckIDs = cfg.SpotCheckIDs
	}
	return p
}

// Package coverpage checks the title, version tag and ETL timestamps printed
// on a report's cover sheet.
package coverpage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"reportverify/internal/domain"
	"reportverify/internal/sheet"
)

// ETLLayout is the timestamp format of the ETL line.
const ETLLayout = "02-Jan-2006 03:04:05 PM"

// etlRow is the cover row that normally carries the ETL line.
const etlRow = 2

var (
	versionLine = regexp.MustCompile(`Version: (\d+\.\d+)`)
	versionCell = regexp.MustCompile(`\d+\.\d+`)
	etlLine     = regexp.MustCompile(
		`ETL - Started: (\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2}:\d{2} [AP]M); CM - Completed: (\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2}:\d{2} [AP]M)`)
)

// ExtractVersion finds "Version: <d>.<d>" in free text.
func ExtractVersion(text string) (string, bool) {
	m := versionLine.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// VersionFromCell reads a bare "<d>.<d>" token from a designated cell.
func VersionFromCell(c sheet.Cell) (string, bool) {
	v := versionCell.FindString(c.String())
	return v, v != ""
}

// Check runs the three cover assertions against the cover sheet. versionCell
// is an optional A1 coordinate consulted when no "Version:" tag is printed.
func Check(cover *sheet.Sheet, title, expectedVersion, versionCell string) domain.CoverResult {
	lines := cover.Lines()
	version := CheckVersion(lines, expectedVersion)
	if !version.Passed && versionCell != "" && !hasVersionTag(lines) {
		version = checkVersionCell(cover, versionCell, expectedVersion)
	}
	return domain.CoverResult{
		Title:    CheckTitle(lines, title),
		Version:  version,
		ETLDates: CheckETLDates(cover),
	}
}

func hasVersionTag(lines []string) bool {
	for _, line := range lines {
		if _, ok := ExtractVersion(line); ok {
			return true
		}
	}
	return false
}

func checkVersionCell(cover *sheet.Sheet, coord, expected string) domain.CheckResult {
	res := domain.CheckResult{Name: "version"}
	col, row, err := excelize.CellNameToCoordinates(coord)
	if err != nil {
		res.Message = fmt.Sprintf("Invalid version cell %q: %v", coord, err)
		return res
	}
	c, _ := cover.Cell(row-1, col-1)
	found, ok := VersionFromCell(c)
	if !ok {
		res.Message = fmt.Sprintf("Version not found in cover page or cell %s", coord)
		return res
	}
	if found == expected {
		res.Passed = true
		res.Message = fmt.Sprintf("Version matches: %s", found)
	} else {
		res.Message = fmt.Sprintf("Version mismatch. Expected: %s, Found: %s", expected, found)
	}
	return res
}

// ReadFailure marks every cover assertion failed with the same read error.
func ReadFailure(err error) domain.CoverResult {
	msg := fmt.Sprintf("Error reading cover page: %v", err)
	return domain.CoverResult{
		Title:    domain.CheckResult{Name: "title_spelling", Message: msg},
		Version:  domain.CheckResult{Name: "version", Message: msg},
		ETLDates: domain.CheckResult{Name: "etl_dates", Message: msg},
	}
}

// CheckTitle finds the first line containing title case-insensitively and
// requires it to equal title exactly once trimmed.
func CheckTitle(lines []string, title string) domain.CheckResult {
	res := domain.CheckResult{Name: "title_spelling"}
	want := strings.ToLower(title)
	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), want) {
			continue
		}
		found := strings.TrimSpace(line)
		if found == title {
			res.Passed = true
			res.Message = fmt.Sprintf("Title spelled correctly: '%s'", title)
		} else {
			res.Message = fmt.Sprintf("Title spelling error. Expected: '%s', Found: '%s'", title, found)
		}
		return res
	}
	res.Message = fmt.Sprintf("Main title not found: '%s'", title)
	return res
}

// CheckVersion compares the first version tag found with expected.
func CheckVersion(lines []string, expected string) domain.CheckResult {
	res := domain.CheckResult{Name: "version"}
	for _, line := range lines {
		found, ok := ExtractVersion(line)
		if !ok {
			continue
		}
		if found == expected {
			res.Passed = true
			res.Message = fmt.Sprintf("Version matches: %s", found)
		} else {
			res.Message = fmt.Sprintf("Version mismatch. Expected: %s, Found: %s", expected, found)
		}
		return res
	}
	res.Message = "Version not found in cover page"
	return res
}

// CheckETLDates requires the ETL start to precede its completion. The third
// row is tried first, then every row in order.
func CheckETLDates(cover *sheet.Sheet) domain.CheckResult {
	res := domain.CheckResult{Name: "etl_dates"}

	m := etlLine.FindStringSubmatch(cover.RowText(etlRow))
	if m == nil {
		for _, line := range cover.Lines() {
			if m = etlLine.FindStringSubmatch(line); m != nil {
				break
			}
		}
	}
	if m == nil {
		res.Message = "ETL date pattern not found in cover page"
		return res
	}

	started, err1 := time.Parse(ETLLayout, m[1])
	completed, err2 := time.Parse(ETLLayout, m[2])
	if err1 != nil || err2 != nil {
		res.Message = "Could not parse ETL dates"
		return res
	}
	if started.Before(completed) {
		res.Passed = true
		res.Message = fmt.Sprintf("ETL dates valid: Started %s before Completed %s", m[1], m[2])
	} else {
		res.Message = fmt.Sprintf("ETL dates invalid: Started %s NOT before Completed %s", m[1], m[2])
	}
	return res
}

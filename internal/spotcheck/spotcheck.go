// Package spotcheck confirms that specific records exist in a detail sheet and
// carry two populated date attributes.
package spotcheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"reportverify/internal/domain"
	"reportverify/internal/sheet"
)

// Roles of the bound columns.
const (
	RoleID         = "id"
	RoleFirstDate  = "first_date"
	RoleSecondDate = "second_date"
)

// Columns locates the id column and the two date columns by header text.
type Columns struct {
	ID         sheet.ColumnMatcher
	FirstDate  sheet.ColumnMatcher
	SecondDate sheet.ColumnMatcher
}

func (c Columns) matchers() []sheet.ColumnMatcher {
	id, first, second := c.ID, c.FirstDate, c.SecondDate
	id.Role, first.Role, second.Role = RoleID, RoleFirstDate, RoleSecondDate
	return []sheet.ColumnMatcher{id, first, second}
}

// dateLayouts are the textual date forms accepted in date columns.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"02-Jan-2006",
	"02-Jan-2006 03:04:05 PM",
	"Jan 2, 2006",
}

// Unchecked is the result for records that could not be looked up because the
// sheet or its columns were unavailable.
func Unchecked(section string, kind domain.SectionErrorKind, msg string) domain.RecordCheckResult {
	return domain.RecordCheckResult{
		Message:    msg,
		MissingIDs: []string{},
		Records:    []domain.RecordDetail{},
		Error:      &domain.SectionError{Section: section, Kind: kind, Message: msg},
	}
}

// CheckRecords looks up every id in table and reports whether each was found
// with both dates present on at least one of its rows. Rows sharing an id are
// folded into one record.
func CheckRecords(table *sheet.Table, ids []string, cols Columns) domain.RecordCheckResult {
	binding, err := sheet.Bind(table, cols.matchers()...)
	if err != nil {
		return Unchecked(table.Sheet, domain.SectionErrorSchema, err.Error())
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	found := make(map[string]*domain.RecordDetail)
	for row := 0; row < table.Len(); row++ {
		id := binding.Cell(row, RoleID).String()
		if !wanted[id] {
			continue
		}
		rec, ok := found[id]
		if !ok {
			rec = &domain.RecordDetail{ID: id, FirstDates: []string{}, SecondDates: []string{}}
			found[id] = rec
		}
		first, hasFirst := FormatDate(binding.Cell(row, RoleFirstDate))
		second, hasSecond := FormatDate(binding.Cell(row, RoleSecondDate))
		rec.FirstDates = append(rec.FirstDates, first)
		rec.SecondDates = append(rec.SecondDates, second)
		rec.HasFirstDate = rec.HasFirstDate || hasFirst
		rec.HasSecondDate = rec.HasSecondDate || hasSecond
	}

	idColumn, _ := binding.Column(RoleID)
	if len(found) == 0 {
		return domain.RecordCheckResult{
			Passed:     false,
			Message:    fmt.Sprintf("None of the specified case numbers found in column '%s'", idColumn),
			MissingIDs: append([]string(nil), ids...),
			Records:    []domain.RecordDetail{},
		}
	}

	res := domain.RecordCheckResult{MissingIDs: []string{}, Records: []domain.RecordDetail{}}
	complete := true
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := found[id]
		if !ok {
			res.MissingIDs = append(res.MissingIDs, id)
			continue
		}
		res.Records = append(res.Records, *rec)
		if !rec.Complete() {
			complete = false
		}
	}
	res.FoundAll = len(res.MissingIDs) == 0
	res.Passed = res.FoundAll && complete

	var parts []string
	if !res.FoundAll {
		parts = append(parts, "Missing cases: "+strings.Join(res.MissingIDs, ", "))
	}
	if !complete {
		parts = append(parts, "Some cases missing dates")
	}
	if len(parts) == 0 {
		res.Message = "All cases found with complete date information"
	} else {
		res.Message = strings.Join(parts, "; ")
	}
	return res
}

// FormatDate renders a date cell as YYYY-MM-DD. present is false only for an
// empty cell. Text that is not a recognizable date is kept, marked as
// unparseable, and still counts as present.
func FormatDate(c sheet.Cell) (value string, present bool) {
	switch c.Kind {
	case sheet.CellEmpty:
		return "", false
	case sheet.CellDate:
		return c.Time.Format("2006-01-02"), true
	case sheet.CellNumber:
		t, err := excelize.ExcelDateToTime(c.Number, false)
		if err != nil || c.Number < 1 {
			return "could not parse: " + c.Text, true
		}
		return t.Format("2006-01-02"), true
	}
	text := c.String()
	if text == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "could not parse: " + text, true
}

package sheet

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// builtinDateFormats are the number format ids Excel reserves for dates and times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true, 50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true,
	57: true, 58: true,
}

// formatLiterals strips quoted text, escaped characters, and bracketed
// sections (locale and colour codes) from a custom number format.
var formatLiterals = regexp.MustCompile(`"[^"]*"|\\.|\[[^\]]*\]`)

// Open reads an xlsx workbook. Every sheet is materialized into memory and the
// underlying file is closed before returning.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()
	return load(f)
}

// OpenFile reads the xlsx workbook at path.
func OpenFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return load(f)
}

func load(f *excelize.File) (*Workbook, error) {
	names := f.GetSheetList()
	sheets := make([]*Sheet, 0, len(names))
	dates := dateStyles{f: f, known: make(map[int]bool)}
	for _, name := range names {
		s, err := loadSheet(f, name, &dates)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, s)
	}
	return NewWorkbook(sheets...), nil
}

func loadSheet(f *excelize.File, name string, dates *dateStyles) (*Sheet, error) {
	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	rows := make([][]Cell, len(formatted))
	for r := range formatted {
		var rawRow []string
		if r < len(raw) {
			rawRow = raw[r]
		}
		width := len(formatted[r])
		if len(rawRow) > width {
			width = len(rawRow)
		}
		row := make([]Cell, width)
		for c := 0; c < width; c++ {
			row[c] = readCell(f, name, r, c, at(formatted[r], c), at(rawRow, c), dates)
		}
		rows[r] = row
	}
	return NewSheet(name, rows), nil
}

func readCell(f *excelize.File, sheetName string, r, c int, text, raw string, dates *dateStyles) Cell {
	if text == "" && raw == "" {
		return Empty
	}
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return StringCell(text)
	}
	typ, _ := f.GetCellType(sheetName, axis)
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString || typ == excelize.CellTypeFormula {
		return StringCell(text)
	}
	num, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if perr != nil {
		return StringCell(text)
	}
	if text == "" {
		text = raw
	}
	styleID, serr := f.GetCellStyle(sheetName, axis)
	if serr == nil && dates.isDate(styleID) {
		if t, terr := excelize.ExcelDateToTime(num, false); terr == nil {
			return Cell{Kind: CellDate, Text: text, Number: num, Time: t}
		}
	}
	return Cell{Kind: CellNumber, Text: text, Number: num}
}

func at(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// dateStyles caches, per style id, whether the style's number format is a date.
type dateStyles struct {
	f     *excelize.File
	known map[int]bool
}

func (d *dateStyles) isDate(styleID int) bool {
	if v, ok := d.known[styleID]; ok {
		return v
	}
	v := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		switch {
		case style.CustomNumFmt != nil:
			v = isDateFormat(*style.CustomNumFmt)
		default:
			v = builtinDateFormats[style.NumFmt]
		}
	}
	d.known[styleID] = v
	return v
}

func isDateFormat(format string) bool {
	clean := strings.ToLower(formatLiterals.ReplaceAllString(format, ""))
	return strings.ContainsAny(clean, "ydh")
}

package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrRowOutOfRange  = errors.New("row out of range")
	ErrHeaderNotFound = errors.New("header row out of range")
)

// Sheet is an immutable 2-D grid of cells. Rows may be ragged; NumCols is the
// widest row.
type Sheet struct {
	Name  string
	rows  [][]Cell
	width int
}

// NewSheet builds a sheet from rows of cells. The rows are not copied.
func NewSheet(name string, rows [][]Cell) *Sheet {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return &Sheet{Name: name, rows: rows, width: width}
}

// FromValues builds a sheet from plain Go values: nil is empty, strings are
// text, numeric types are numbers. Intended for fixtures and small tables.
func FromValues(name string, values [][]any) *Sheet {
	rows := make([][]Cell, len(values))
	for i, vr := range values {
		row := make([]Cell, len(vr))
		for j, v := range vr {
			row[j] = valueCell(v)
		}
		rows[i] = row
	}
	return NewSheet(name, rows)
}

func valueCell(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Empty
	case Cell:
		return x
	case string:
		return StringCell(x)
	case int:
		return NumberCell(float64(x))
	case int64:
		return NumberCell(float64(x))
	case float64:
		return NumberCell(x)
	default:
		return StringCell(fmt.Sprint(x))
	}
}

// NumRows returns the number of rows in the grid.
func (s *Sheet) NumRows() int { return len(s.rows) }

// NumCols returns the width of the widest row.
func (s *Sheet) NumCols() int { return s.width }

// Cell returns the cell at (row, col). ok is false when the coordinate lies
// outside the grid; a coordinate inside the grid but past a short row is an
// empty cell.
func (s *Sheet) Cell(row, col int) (Cell, bool) {
	if row < 0 || col < 0 || row >= len(s.rows) || col >= s.width {
		return Empty, false
	}
	r := s.rows[row]
	if col >= len(r) {
		return Empty, true
	}
	return r[col], true
}

// Row returns the cells of row i padded to the sheet width.
func (s *Sheet) Row(i int) ([]Cell, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("%w: sheet %q has %d rows, wanted row %d", ErrRowOutOfRange, s.Name, len(s.rows), i+1)
	}
	out := make([]Cell, s.width)
	copy(out, s.rows[i])
	return out, nil
}

// Column returns the cells of column col for rows [from, to). The range is
// clamped to the grid.
func (s *Sheet) Column(col, from, to int) []Cell {
	if from < 0 {
		from = 0
	}
	if to > len(s.rows) {
		to = len(s.rows)
	}
	var out []Cell
	for r := from; r < to; r++ {
		c, _ := s.Cell(r, col)
		out = append(out, c)
	}
	return out
}

// RowLabels returns the non-empty cells of row i as trimmed strings.
func (s *Sheet) RowLabels(i int) ([]string, error) {
	cells, err := s.Row(i)
	if err != nil {
		return nil, err
	}
	return Labels(DropEmpty(cells)), nil
}

// ColumnLabels returns the non-empty cells of column col in rows [from, to)
// as trimmed strings.
func (s *Sheet) ColumnLabels(col, from, to int) []string {
	return Labels(DropEmpty(s.Column(col, from, to)))
}

// RowText joins the non-empty cells of row i with single spaces.
func (s *Sheet) RowText(i int) string {
	cells, err := s.Row(i)
	if err != nil {
		return ""
	}
	parts := make([]string, 0, len(cells))
	for _, c := range DropEmpty(cells) {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

// Lines returns RowText for every row.
func (s *Sheet) Lines() []string {
	out := make([]string, len(s.rows))
	for i := range s.rows {
		out[i] = s.RowText(i)
	}
	return out
}

// Table interprets row headerRow as column names and the rows below it as
// records. Column names are trimmed and fully empty records are skipped.
func (s *Sheet) Table(headerRow int) (*Table, error) {
	if headerRow < 0 || headerRow >= len(s.rows) {
		return nil, fmt.Errorf("%w: sheet %q row %d", ErrHeaderNotFound, s.Name, headerRow+1)
	}
	header, _ := s.Row(headerRow)
	cols := make([]string, len(header))
	for i, c := range header {
		cols[i] = c.String()
	}

	var records [][]Cell
	for r := headerRow + 1; r < len(s.rows); r++ {
		row, _ := s.Row(r)
		if len(DropEmpty(row)) == 0 {
			continue
		}
		records = append(records, row)
	}
	return &Table{Sheet: s.Name, Columns: cols, rows: records}, nil
}

// Workbook is an ordered collection of named sheets.
type Workbook struct {
	sheets []*Sheet
	byName map[string]*Sheet
}

// NewWorkbook builds a workbook from sheets in order.
func NewWorkbook(sheets ...*Sheet) *Workbook {
	wb := &Workbook{sheets: sheets, byName: make(map[string]*Sheet, len(sheets))}
	for _, s := range sheets {
		wb.byName[s.Name] = s
	}
	return wb
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	out := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		out[i] = s.Name
	}
	return out
}

// SheetByName returns the named sheet.
func (w *Workbook) SheetByName(name string) (*Sheet, error) {
	s, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}
	return s, nil
}

// SheetByIndex returns the i-th sheet (0-based).
func (w *Workbook) SheetByIndex(i int) (*Sheet, error) {
	if i < 0 || i >= len(w.sheets) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrSheetNotFound, i, len(w.sheets))
	}
	return w.sheets[i], nil
}

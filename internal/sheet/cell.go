// Package sheet is the read-only tabular document model used by the verifier.
// Workbooks are loaded once (see Open) and never mutated afterwards.
package sheet

import (
	"strconv"
	"strings"
	"time"
)

// CellKind is the type of value stored in a cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellDate
)

func (k CellKind) String() string {
	switch k {
	case CellString:
		return "string"
	case CellNumber:
		return "number"
	case CellDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a single typed grid value. Text always holds the display form.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// Empty is the zero cell.
var Empty = Cell{}

// StringCell returns a text cell. An empty string yields an empty cell.
func StringCell(s string) Cell {
	if s == "" {
		return Empty
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell returns a numeric cell whose display text is the shortest decimal form.
func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Text: strconv.FormatFloat(v, 'f', -1, 64), Number: v}
}

// DateCell returns a date cell displayed as YYYY-MM-DD.
func DateCell(t time.Time) Cell {
	return Cell{Kind: CellDate, Text: t.Format("2006-01-02"), Time: t}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String returns the trimmed display text.
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// Float returns the numeric value of the cell. Text cells are parsed; anything
// that is not a number reports false.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellString:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// DropEmpty compacts cells to the non-empty ones, preserving order.
func DropEmpty(cells []Cell) []Cell {
	out := make([]Cell, 0, len(cells))
	for _, c := range cells {
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

// Labels converts cells to trimmed strings.
func Labels(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.String()
	}
	return out
}

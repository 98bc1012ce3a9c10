package sheet

import (
	"fmt"
	"sort"
	"strings"
)

// Table is a sheet read with a header row: named columns over record rows.
type Table struct {
	Sheet   string
	Columns []string
	rows    [][]Cell
}

// NewTable builds a table directly from column names and records.
func NewTable(name string, columns []string, rows [][]Cell) *Table {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.TrimSpace(c)
	}
	return &Table{Sheet: name, Columns: cols, rows: rows}
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.rows) }

// Cell returns the cell of record row at column index col.
func (t *Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.rows) || col < 0 {
		return Empty
	}
	r := t.rows[row]
	if col >= len(r) {
		return Empty
	}
	return r[col]
}

// ColumnMatcher locates a column by case-insensitive substring matching.
// A header matches when it contains every fragment in All.
type ColumnMatcher struct {
	Role string
	All  []string
}

// Match builds a matcher for role requiring all fragments.
func Match(role string, fragments ...string) ColumnMatcher {
	return ColumnMatcher{Role: role, All: fragments}
}

// Matches reports whether header satisfies the matcher.
func (m ColumnMatcher) Matches(header string) bool {
	h := strings.ToLower(header)
	for _, f := range m.All {
		if !strings.Contains(h, strings.ToLower(f)) {
			return false
		}
	}
	return len(m.All) > 0
}

func (m ColumnMatcher) describe() string {
	return fmt.Sprintf("%s (%s)", m.Role, strings.Join(m.All, " + "))
}

// MissingColumnsError reports the roles whose columns could not be found.
type MissingColumnsError struct {
	Sheet   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns in %s: %s", e.Sheet, strings.Join(e.Columns, ", "))
}

// Binding maps column roles to column indexes of one table. It is resolved
// once and reused for every row.
type Binding struct {
	table   *Table
	index   map[string]int
	missing map[string]ColumnMatcher
}

// Resolve scans the header once and binds every matcher it can. When several
// columns match, the last one wins.
func Resolve(t *Table, matchers ...ColumnMatcher) *Binding {
	b := &Binding{
		table:   t,
		index:   make(map[string]int, len(matchers)),
		missing: make(map[string]ColumnMatcher),
	}
	for _, m := range matchers {
		found := -1
		for i, h := range t.Columns {
			if m.Matches(h) {
				found = i
			}
		}
		if found < 0 {
			b.missing[m.Role] = m
			continue
		}
		b.index[m.Role] = found
	}
	return b
}

// Bind resolves every matcher or returns a *MissingColumnsError.
func Bind(t *Table, matchers ...ColumnMatcher) (*Binding, error) {
	b := Resolve(t, matchers...)
	roles := make([]string, 0, len(matchers))
	for _, m := range matchers {
		roles = append(roles, m.Role)
	}
	if err := b.Require(roles...); err != nil {
		return nil, err
	}
	return b, nil
}

// Require returns a *MissingColumnsError naming every role in roles that is
// not bound.
func (b *Binding) Require(roles ...string) error {
	var missing []string
	for _, r := range roles {
		if _, ok := b.index[r]; ok {
			continue
		}
		if m, ok := b.missing[r]; ok {
			missing = append(missing, m.describe())
		} else {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingColumnsError{Sheet: b.table.Sheet, Columns: missing}
}

// Len returns the number of records of the bound table.
func (b *Binding) Len() int { return b.table.Len() }

// Column returns the header text bound to role.
func (b *Binding) Column(role string) (string, bool) {
	i, ok := b.index[role]
	if !ok {
		return "", false
	}
	return b.table.Columns[i], true
}

// Cell returns the cell for role in record row. Unbound roles are empty.
func (b *Binding) Cell(row int, role string) Cell {
	i, ok := b.index[role]
	if !ok {
		return Empty
	}
	return b.table.Cell(row, i)
}

// Text returns the untrimmed display text for role in record row; empty cells
// yield "".
func (b *Binding) Text(row int, role string) string {
	return b.Cell(row, role).Text
}

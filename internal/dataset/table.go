// Package dataset holds the in-memory tabular representation of shopper
// records together with the loaders and writers that move it to and from
// flat files.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRows is returned when an operation needs at least one data row.
var ErrNoRows = errors.New("table has no rows")

// Table is a rectangular set of raw string cells keyed by column name.
// A missing cell is the empty string.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// New builds a table, padding or truncating rows to the header width.
// A repeated header keeps its first occurrence as is; later ones become
// "name.1", "name.2" and so on.
func New(name string, columns []string, rows [][]string) *Table {
	cols := make([]string, len(columns))
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if seen[c] {
			base := c
			for n := 1; seen[c]; n++ {
				c = fmt.Sprintf("%s.%d", base, n)
			}
		}
		seen[c] = true
		cols[i] = c
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(cols))
		copy(row, r)
		out[i] = row
	}
	return &Table{Name: name, Columns: cols, Rows: out}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether every named column is present.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return New(t.Name, t.Columns, t.Rows)
}

// WithColumn returns a new table with values set as the named column.
// An existing column of that name is replaced; otherwise it is appended.
// The receiver is left untouched.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("column %q: got %d values for %d rows", name, len(values), len(t.Rows))
	}
	out := t.Clone()
	idx := out.Index(name)
	if idx < 0 {
		out.Columns = append(out.Columns, name)
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], values[i])
		}
		return out, nil
	}
	for i := range out.Rows {
		out.Rows[i][idx] = values[i]
	}
	return out, nil
}

// Records returns header and rows as a single slice, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, r := range t.Rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

// Head returns up to n leading rows.
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n <= 0 {
		return nil
	}
	return t.Clone().Rows[:n]
}

package client

import (
	"fmt"
	"strconv"
	"time"
)

// Row is one result row with its columns in select order.
type Row struct {
	Columns []string
	Values  []any
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.Columns)
}

// Empty reports whether the row has no columns, as returned for no rows.
func (r *Row) Empty() bool {
	return len(r.Columns) == 0
}

// Get returns the value of the first column named name.
func (r *Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a map. Column order is lost.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// Column describes a result column.
type Column struct {
	Name         string
	DatabaseType string
	Nullable     bool
}

// Table is a materialized result set.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in select order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row returns row i as a Row.
func (t *Table) Row(i int) *Row {
	return &Row{Columns: t.ColumnNames(), Values: t.Rows[i]}
}

// Format renders the table as text, header first. Values are formatted the
// same way regardless of the process locale.
func (t *Table) Format() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.ColumnNames())
	for _, row := range t.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = FormatValue(v)
		}
		out = append(out, line)
	}
	return out
}

// FormatValue renders a scanned value. NULL renders as the empty string,
// numbers use '.' as decimal separator and times use RFC 3339.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

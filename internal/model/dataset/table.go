package dataset

import "strings"

// ColumnType 是推断出的列类型。
type ColumnType string

const (
	Number ColumnType = "number"
	Text   ColumnType = "text"
)

// Column describes one column of an ingested table.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Table is the parsed form of an uploaded tabular file. Once a table has been
// handed to a session it is read-only; nothing in the engine mutates it.
type Table struct {
	SourceName string
	Columns    []Column
	Rows       [][]string
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnNames returns the column names in original order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex finds a column by name, case-insensitively. Returns -1 when the
// column does not exist.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

package types

import "fmt"

// Table is an ordered sequence of rows sharing one schema.
// Invariant: every row has exactly the table's columns, no more, no fewer.
type Table struct {
	Schema Schema
	Rows   []Row
}

// NewTable builds a table after validating every row against the schema.
func NewTable(schema Schema, rows []Row) (*Table, error) {
	for i, row := range rows {
		if err := validateRow(schema, row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return &Table{Schema: schema, Rows: rows}, nil
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Column extracts the named column's values in row order.
func (t *Table) Column(name string) ([]interface{}, bool) {
	if t.Schema.Index(name) < 0 {
		return nil, false
	}
	vals := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		vals[i] = row[name]
	}
	return vals, true
}

func validateRow(schema Schema, row Row) error {
	if len(row) != len(schema.Columns) {
		return fmt.Errorf("row has %d columns, schema has %d", len(row), len(schema.Columns))
	}
	for _, c := range schema.Columns {
		if _, ok := row[c.Name]; !ok {
			return fmt.Errorf("missing column %q", c.Name)
		}
	}
	return nil
}

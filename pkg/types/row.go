package types

// Row is a single data row: a mapping from column name to a typed scalar
// (string, int64, float64, or time.Time for dates). Rows are treated as
// immutable once a table is built; Clone before mutating.
type Row map[string]interface{}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

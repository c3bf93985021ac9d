package types

// Schema defines the ordered column structure of a table.
// It is fixed at ingestion time from the source file's header.
type Schema struct {
	// Columns defines the columns in schema order
	Columns []ColumnDef `json:"columns"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the scalar type: string, int, float, date
	Type ColumnType `json:"type"`
}

// NewSchema builds a schema from ordered column definitions.
func NewSchema(cols ...ColumnDef) Schema {
	return Schema{Columns: cols}
}

// Index returns the position of the named column, or -1 if absent.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the definition of the named column.
func (s Schema) Column(name string) (ColumnDef, bool) {
	i := s.Index(name)
	if i < 0 {
		return ColumnDef{}, false
	}
	return s.Columns[i], true
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Without returns a copy of the schema with the named column removed.
func (s Schema) Without(name string) Schema {
	cols := make([]ColumnDef, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name != name {
			cols = append(cols, c)
		}
	}
	return Schema{Columns: cols}
}

// Insert returns a copy of the schema with col inserted at position pos.
// Positions past the end append.
func (s Schema) Insert(col ColumnDef, pos int) Schema {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.Columns) {
		pos = len(s.Columns)
	}
	cols := make([]ColumnDef, 0, len(s.Columns)+1)
	cols = append(cols, s.Columns[:pos]...)
	cols = append(cols, col)
	cols = append(cols, s.Columns[pos:]...)
	return Schema{Columns: cols}
}

// Equal reports whether two schemas have the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if c != other.Columns[i] {
			return false
		}
	}
	return true
}

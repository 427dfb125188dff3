package domain

// Row maps a dotted column path to its raw value. A column that exists
// with a nil value is absent data; a column missing from the map is a
// shape error for the consumer to report.
type Row map[string]any

// Table is the tabular result of a movements search
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the projection includes name
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

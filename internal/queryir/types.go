package queryir

import "github.com/roach88/classkit/internal/ir"

// Query is a filtered read of one stored table.
//
// Sealed: only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a filter condition over the columns of a Query's table.
//
// Sealed: only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from the table From, keeping rows where Filter holds.
//
//	Select{
//	  From:    "construction_events",
//	  Columns: []string{"run_id", "seq", "kind"},
//	  Filter:  Equals{Field: "kind", Value: ir.IRString("constructor")},
//	}
//
// Columns must be explicit (no SELECT *). A nil Filter keeps every row.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
}

func (Select) queryNode() {}

// Equals holds when the column Field equals Value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// CompareOp is an ordering operator for Compare.
type CompareOp string

const (
	OpLess         CompareOp = "<"
	OpLessEqual    CompareOp = "<="
	OpGreater      CompareOp = ">"
	OpGreaterEqual CompareOp = ">="
)

// Compare holds when the integer column Field stands in relation Op to
// Value, e.g. depth >= 1.
type Compare struct {
	Field string
	Op    CompareOp
	Value ir.IRInt
}

func (Compare) predicateNode() {}

// And holds when every predicate holds. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Table names.
const (
	TableRuns   = "runs"
	TableEvents = "construction_events"
)

// ColumnType is the storage type of a column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInteger
	// ColumnJSON columns are selectable but never filterable.
	ColumnJSON
)

// Column describes one stored column.
type Column struct {
	Name string
	Type ColumnType
}

// Tables is the catalog of queryable tables, columns in storage order.
var Tables = map[string][]Column{
	TableRuns: {
		{Name: "id", Type: ColumnText},
		{Name: "class", Type: ColumnText},
		{Name: "args", Type: ColumnJSON},
		{Name: "seq", Type: ColumnInteger},
		{Name: "engine_version", Type: ColumnText},
		{Name: "ir_version", Type: ColumnText},
	},
	TableEvents: {
		{Name: "run_id", Type: ColumnText},
		{Name: "seq", Type: ColumnInteger},
		{Name: "class", Type: ColumnText},
		{Name: "target", Type: ColumnText},
		{Name: "kind", Type: ColumnText},
		{Name: "depth", Type: ColumnInteger},
	},
}

// ColumnNames returns the names of a table's columns in storage order,
// or nil for an unknown table.
func ColumnNames(table string) []string {
	cols, ok := Tables[table]
	if !ok {
		return nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func lookupColumn(table, name string) (Column, bool) {
	for _, c := range Tables[table] {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

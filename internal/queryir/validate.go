package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/ir"
)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks a query against the table catalog: the table exists,
// columns are explicit and known, and every predicate compares a
// filterable column against a value of the column's type.
//
// Returns nil or a *ValidationError carrying all problems found.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(s Select) {
	if _, ok := Tables[s.From]; !ok {
		v.addProblem("unknown table %q", s.From)
		return
	}
	if len(s.Columns) == 0 {
		v.addProblem("no columns selected from %s", s.From)
	}
	for _, name := range s.Columns {
		if _, ok := lookupColumn(s.From, name); !ok {
			v.addProblem("unknown column %s.%s", s.From, name)
		}
	}
	if s.Filter != nil {
		v.validatePredicate(s.From, s.Filter)
	}
}

func (v *validator) validatePredicate(table string, p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(table, pred)
	case *Equals:
		v.validateEquals(table, *pred)
	case Compare:
		v.validateCompare(table, pred)
	case *Compare:
		v.validateCompare(table, *pred)
	case And:
		v.validateAnd(table, pred)
	case *And:
		v.validateAnd(table, *pred)
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) filterColumn(table, field string) (Column, bool) {
	col, ok := lookupColumn(table, field)
	if !ok {
		v.addProblem("unknown column %s.%s", table, field)
		return Column{}, false
	}
	if col.Type == ColumnJSON {
		v.addProblem("column %s.%s cannot be filtered", table, field)
		return Column{}, false
	}
	return col, true
}

func (v *validator) validateEquals(table string, eq Equals) {
	col, ok := v.filterColumn(table, eq.Field)
	if !ok {
		return
	}
	switch eq.Value.(type) {
	case ir.IRString:
		if col.Type != ColumnText {
			v.addProblem("%s is an integer column, got a string", eq.Field)
		}
	case ir.IRInt:
		if col.Type != ColumnInteger {
			v.addProblem("%s is a text column, got an integer", eq.Field)
		}
	default:
		v.addProblem("%s compared with unsupported value %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateCompare(table string, cmp Compare) {
	col, ok := v.filterColumn(table, cmp.Field)
	if !ok {
		return
	}
	if col.Type != ColumnInteger {
		v.addProblem("%s %s: ordering comparisons need an integer column", cmp.Field, cmp.Op)
	}
	switch cmp.Op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
	default:
		v.addProblem("unknown comparison operator %q", cmp.Op)
	}
}

func (v *validator) validateAnd(table string, and And) {
	for _, p := range and.Predicates {
		v.validatePredicate(table, p)
	}
}

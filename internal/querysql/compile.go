// Package querysql compiles queryir queries to parameterized SQLite SQL.
//
// Every compiled query carries an ORDER BY with a unique tiebreaker, and
// every literal is bound as a parameter, never interpolated.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/queryir"
)

// orderKeys is the stable ordering of each table: logical seq first, then
// the key column under COLLATE BINARY.
var orderKeys = map[string]string{
	queryir.TableRuns:   "seq ASC, id COLLATE BINARY ASC",
	queryir.TableEvents: "seq ASC, run_id COLLATE BINARY ASC",
}

// Compile converts a query to SQL and its parameters. The query is
// validated against the queryir table catalog first.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(sel.Columns, ", "), sel.From)

	var params []any
	if sel.Filter != nil {
		where, whereParams, err := compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = whereParams
	}

	b.WriteString(" ORDER BY " + orderKeys[sel.From])
	return b.String(), params, nil
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{int64(pred.Value)}, nil
	case *queryir.Compare:
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{int64(pred.Value)}, nil
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// irValueToParam converts a scalar ir.IRValue to a driver parameter.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRBool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}

package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/classkit/internal/ir"
)

// Two-character operators come first so they win a tie with their
// one-character prefix at the same position.
var clauseOps = []string{">=", "<=", "=", ">", "<"}

// ParseWhere turns clauses like "kind=constructor" or "depth>=1" into a
// predicate over table. Values of integer columns must parse as integers;
// text values are taken verbatim. Several clauses are combined with And.
// No clauses yield a nil predicate.
func ParseWhere(table string, clauses []string) (Predicate, error) {
	if _, ok := Tables[table]; !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	var preds []Predicate
	for _, clause := range clauses {
		pred, err := parseClause(table, clause)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return And{Predicates: preds}, nil
	}
}

// splitClause splits clause at its leftmost operator.
func splitClause(clause string) (field, op, raw string, ok bool) {
	at := -1
	for _, candidate := range clauseOps {
		idx := strings.Index(clause, candidate)
		if idx >= 0 && (at < 0 || idx < at) {
			at, op = idx, candidate
		}
	}
	if at < 0 {
		return "", "", "", false
	}
	return strings.TrimSpace(clause[:at]), op, strings.TrimSpace(clause[at+len(op):]), true
}

func parseClause(table, clause string) (Predicate, error) {
	field, op, raw, ok := splitClause(clause)
	if !ok {
		return nil, fmt.Errorf("where %q: expected column<op>value with op one of = < <= > >=", clause)
	}
	if field == "" {
		return nil, fmt.Errorf("where %q: missing column", clause)
	}

	col, found := lookupColumn(table, field)
	if !found {
		return nil, fmt.Errorf("where %q: unknown column %s.%s", clause, table, field)
	}

	var value ir.IRValue = ir.IRString(raw)
	if col.Type == ColumnInteger {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("where %q: %s needs an integer", clause, field)
		}
		value = ir.IRInt(n)
	}

	if op == "=" {
		return Equals{Field: field, Value: value}, nil
	}
	n, isInt := value.(ir.IRInt)
	if !isInt {
		return nil, fmt.Errorf("where %q: %s only supports =", clause, field)
	}
	return Compare{Field: field, Op: CompareOp(op), Value: n}, nil
}

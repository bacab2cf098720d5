package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/queryir"
)

func TestCompile_NoFilter(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    queryir.TableRuns,
		Columns: []string{"id", "class"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, class FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_ParameterizesValues(t *testing.T) {
	sql, params, err := Compile(&queryir.Select{
		From:    queryir.TableEvents,
		Columns: queryir.ColumnNames(queryir.TableEvents),
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "class", Value: ir.IRString("Animal'; DROP TABLE runs; --")},
			&queryir.Compare{Field: "depth", Op: queryir.OpGreaterEqual, Value: 1},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT run_id, seq, class, target, kind, depth FROM construction_events"+
			" WHERE class = ? AND depth >= ?"+
			" ORDER BY seq ASC, run_id COLLATE BINARY ASC",
		sql)
	assert.NotContains(t, sql, "Animal")
	assert.Equal(t, []any{"Animal'; DROP TABLE runs; --", int64(1)}, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    queryir.TableEvents,
		Columns: []string{"seq"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "run_id", Value: ir.IRString("run-1")},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Compare{Field: "seq", Op: queryir.OpGreater, Value: 2},
				queryir.Compare{Field: "seq", Op: queryir.OpLess, Value: 6},
			}},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE run_id = ? AND (seq > ? AND seq < ?)")
	assert.Equal(t, []any{"run-1", int64(2), int64(6)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, _, err := Compile(queryir.Select{
		From:    queryir.TableEvents,
		Columns: []string{"seq"},
		Filter:  queryir.And{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
}

func TestCompile_Deterministic(t *testing.T) {
	q := queryir.Select{
		From:    queryir.TableEvents,
		Columns: queryir.ColumnNames(queryir.TableEvents),
		Filter:  queryir.Equals{Field: "kind", Value: ir.IRString("constructor")},
	}
	first, _, err := Compile(q)
	require.NoError(t, err)
	for range 10 {
		again, _, err := Compile(q)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCompile_RejectsInvalid(t *testing.T) {
	_, _, err := Compile(queryir.Select{From: "classes", Columns: []string{"name"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown table "classes"`)

	_, _, err = Compile(nil)
	assert.Error(t, err)
}

func TestIRValueToParam(t *testing.T) {
	v, err := irValueToParam(ir.IRBool(true))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = irValueToParam(ir.IRArray{})
	assert.Error(t, err)
}

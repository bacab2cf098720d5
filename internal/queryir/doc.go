// Package queryir provides the abstract filter representation used to
// query stored construction runs.
//
// A Query names one stored table and a predicate over its columns. The
// table catalog (Tables) is the contract between filter producers (the
// trace command's --where clauses, the store's own readers) and the SQL
// backend in internal/querysql:
//
//	[--where clauses] → [Query IR] → [SQL backend]
//
// # Sealed Interfaces
//
// Query and Predicate are sealed with marker methods, so backends can
// switch over every node type exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Compare:
//	case And:
//	}
//
// # Values
//
// Literal values are ir.IRValue. Text columns compare against IRString and
// integer columns against IRInt. Ordering comparisons (Compare) apply to
// integer columns only, so every filter has one deterministic meaning.
package queryir

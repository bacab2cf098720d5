// Package store provides SQLite-backed durable storage for classkit.
//
// The store keeps an append-only record of:
//   - Classes: compiled class specs keyed by name, with their content hash
//   - Class versions: every spec a class has had, keyed by (name, hash)
//   - Runs: one row per instantiation (class, arguments, logical seq),
//     plus the spec hash of each class in its chain
//   - Construction events: the ordered superclass construction trace of a run
//   - Snapshots: the instance state after construction, with a digest
//
// # Ordering
//
// All ordering uses seq INTEGER (logical clock), never timestamps. Queries
// over several rows order by seq ASC, id ASC COLLATE BINARY so results are
// identical across runs.
//
// # Filtered Reads
//
// QueryRuns and QueryEvents take a queryir predicate, compiled by
// querysql into parameterized SQL. ListRuns and ReadRunEvents are thin
// filters over them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Stored JSON is RFC 8785 canonical JSON (see internal/ir).
package store

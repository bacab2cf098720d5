// Package ir provides the declarative representation of classkit classes.
//
// This package contains data types only. Other internal packages import
// ir; ir imports nothing internal.
//
// Design constraints:
//   - No float values anywhere; numbers are int64
//   - All JSON tags use snake_case
//   - Content hashes use RFC 8785 canonical JSON with domain separation
//   - Construction events are ordered by a logical seq, never wall-clock time
package ir

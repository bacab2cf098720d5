// Package engine turns compiled class specs into live classes and
// constructs instances of them.
//
// New validates every spec, orders the set so parents come before their
// children and materializes each class through package class. Method
// bodies are generated from the declared kinds (const, get, repeat and
// delegate) and installed on the tier they name.
//
// Every Instantiate is a run. The run and each of its construction events
// are stamped from a logical Clock, never from wall time, so a run's
// trace is reproducible. With a store attached the class chain, the run,
// its events and a snapshot of the resulting instance are written in one
// transaction.
package engine

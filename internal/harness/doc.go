// Package harness runs conformance scenarios against the class engine.
//
// # Scenario Format
//
//	name: duck_quacks
//	description: "Duck constructs Animal explicitly and delegates to it"
//	specs:
//	  - ../specs/animals.cue
//	steps:
//	  - new: Duck
//	    args: [larry]
//	    as: larry
//	  - call: quack
//	    on: larry
//	    args: [2]
//	    expect: "quack quack"
//	  - static_call: isAnimal
//	    class: Duck
//	    expect: duck
//	  - new: Goose
//	    expect_error: UNKNOWN_CLASS
//	assertions:
//	  - type: trace_order
//	    events: ["Duck begin", "Animal constructor", "Duck end"]
//	  - type: trace_count
//	    event: "Animal begin"
//	    count: 1
//	  - type: field
//	    instance: larry
//	    class: Duck
//	    tier: private
//	    field: name
//	    value: larry
//
// Trace labels are "<Class> <kind>" for construction events, with the
// target appended for explicit and implicit super construction, "call
// <alias>.<method>", "static <Class>.<method>" and "new <Class>" for a
// failed instantiation.
//
// # Determinism
//
// Every run uses a fresh in-memory store, testutil.DeterministicClock and
// testutil.SequentialRunIDs, so a scenario's trace is byte-identical
// across runs and can be compared with a golden file (RunWithGolden).
package harness

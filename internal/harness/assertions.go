package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface. The trace is listed by label so a
// failing scenario can be read without the golden file.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Label())
		}
	}
	return buf.String()
}

// assertTraceOrder checks that the labelled entries appear in the given
// order. Other entries may appear in between; the first occurrence of each
// label counts.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		label := event.Label()
		if positions[label] == 0 {
			positions[label] = i + 1
		}
	}

	for _, label := range assertion.Events {
		if positions[label] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", label),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev, curr := assertion.Events[i-1], assertion.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that a label occurs exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Label() == assertion.Event {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertField checks one field of an instance snapshot.
func assertField(instances map[string]ir.InstanceSnapshot, assertion Assertion) error {
	where := fmt.Sprintf("%s.%s", assertion.Instance, assertion.Field)
	snap, ok := instances[assertion.Instance]
	if !ok {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("instance %q", assertion.Instance),
			Actual:   "no such instance",
		}
	}

	fields, err := tierFields(snap, assertion.Class, assertion.Tier)
	if err != nil {
		return &AssertionError{Type: AssertField, Expected: where, Actual: err.Error()}
	}
	got, ok := fields[assertion.Field]
	if !ok {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("%s = %v", where, assertion.Value),
			Actual:   "field not set",
		}
	}

	want, err := ir.FromNative(assertion.Value)
	if err != nil {
		return fmt.Errorf("field %s: expected value: %w", where, err)
	}
	equal, err := sameValue(want, got)
	if err != nil {
		return fmt.Errorf("field %s: %w", where, err)
	}
	if !equal {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("%s = %s", where, describe(want)),
			Actual:   fmt.Sprintf("%s = %s", where, describe(got)),
		}
	}
	return nil
}

func tierFields(snap ir.InstanceSnapshot, class, tier string) (ir.IRObject, error) {
	if tier == "" || tier == string(ir.TierPublic) {
		return snap.Public, nil
	}
	for _, ts := range snap.Chain {
		if ts.Class != class {
			continue
		}
		if tier == string(ir.TierPrivate) {
			return ts.Private, nil
		}
		return ts.Protected, nil
	}
	return nil, fmt.Errorf("class %s is not in the chain of %s", class, snap.Class)
}

// sameValue compares two values by their canonical JSON.
func sameValue(a, b ir.IRValue) (bool, error) {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false, err
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

func describe(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// EvaluateAssertions runs every assertion against result and returns one
// message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertField:
			err = assertField(result.Instances, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

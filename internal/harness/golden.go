package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/classkit/internal/ir"
)

// TraceSnapshot is what a golden file holds: the trace and the stored
// snapshot of every named instance.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Instances    map[string]ir.InstanceSnapshot
}

// toCanonicalMap builds the value serialized into golden files. Fields
// that do not apply to an entry's type are left out.
func (s *TraceSnapshot) toCanonicalMap() (map[string]any, error) {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"type":  ev.Type,
			"seq":   ev.Seq,
			"class": ev.Class,
		}
		if ev.RunID != "" {
			m["run_id"] = ev.RunID
		}
		switch ev.Type {
		case TraceConstruct:
			m["target"] = ev.Target
			m["kind"] = ev.Kind
			m["depth"] = ev.Depth
		default:
			if ev.On != "" {
				m["on"] = ev.On
			}
			if ev.Method != "" {
				m["method"] = ev.Method
			}
			m["args"] = nonNil(ev.Args)
			if ev.Error != "" {
				m["error"] = ev.Error
			} else if ev.Result != nil {
				m["result"] = ev.Result
			}
		}
		trace[i] = m
	}

	instances := make(map[string]any, len(s.Instances))
	for alias, snap := range s.Instances {
		raw, err := json.Marshal(snap)
		if err != nil {
			return nil, err
		}
		v, err := ir.UnmarshalIRValue(raw)
		if err != nil {
			return nil, err
		}
		instances[alias] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"instances":     instances,
	}, nil
}

func nonNil(a ir.IRArray) ir.IRArray {
	if a == nil {
		return ir.IRArray{}
	}
	return a
}

// MarshalTrace serializes a result as canonical JSON for golden comparison.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snap := TraceSnapshot{ScenarioName: name, Trace: result.Trace, Instances: result.Instances}
	m, err := snap.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// The returned result lets callers check Pass and Errors as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: classes to load, steps to run
// against them and assertions over the resulting trace and instances.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description says what the scenario checks.
	Description string `yaml:"description"`

	// Specs lists CUE files declaring the classes.
	Specs []string `yaml:"specs"`

	// Steps run in order. Each step is exactly one of new, call or
	// static_call.
	Steps []Step `yaml:"steps"`

	// Assertions run after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunPrefix prefixes the deterministic run ids ("run" if empty).
	RunPrefix string `yaml:"run_prefix,omitempty"`
}

// Step is one scenario action.
//
//	- new: Duck
//	  args: [larry]
//	  as: larry
//	- call: quack
//	  on: larry
//	  args: [2]
//	  expect: quack quack
//	- static_call: isAnimal
//	  class: Duck
//	  expect: duck
type Step struct {
	New        string `yaml:"new,omitempty"`
	Call       string `yaml:"call,omitempty"`
	StaticCall string `yaml:"static_call,omitempty"`

	// As names the instance a new step creates.
	As string `yaml:"as,omitempty"`
	// On names the instance a call step targets.
	On string `yaml:"on,omitempty"`
	// Class names the class a static_call step targets.
	Class string `yaml:"class,omitempty"`

	Args []any `yaml:"args,omitempty"`

	// Expect is the value a call must return. Nil skips the check.
	Expect any `yaml:"expect,omitempty"`

	// ExpectError is the runtime error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the trace or an instance after the steps ran.
type Assertion struct {
	// Type is one of trace_order, trace_count or field.
	Type string `yaml:"type"`

	// Events lists trace labels that must appear in this relative order
	// (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Event is the trace label to count (trace_count).
	Event string `yaml:"event,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Instance, Class, Tier, Field and Value select and check one field of
	// an instance snapshot (field). Class is required for the private and
	// protected tiers.
	Instance string `yaml:"instance,omitempty"`
	Class    string `yaml:"class,omitempty"`
	Tier     string `yaml:"tier,omitempty"`
	Field    string `yaml:"field,omitempty"`
	Value    any    `yaml:"value,omitempty"`
}

// Assertion types.
const (
	AssertTraceOrder = "trace_order"
	AssertTraceCount = "trace_count"
	AssertField      = "field"
)

// LoadScenario reads a scenario file. Spec paths are resolved relative to
// the scenario's directory. Unknown YAML fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, spec := range scenario.Specs {
		if !filepath.IsAbs(spec) {
			scenario.Specs[i] = filepath.Join(base, spec)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, spec := range s.Specs {
		if _, err := os.Stat(spec); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", spec)
		}
	}

	aliases := make(map[string]bool)
	for i, step := range s.Steps {
		if err := validateStep(i, step, aliases); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, aliases map[string]bool) error {
	set := 0
	for _, v := range []string{step.New, step.Call, step.StaticCall} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of new, call or static_call is required", i)
	}

	switch {
	case step.New != "":
		if step.As != "" {
			if aliases[step.As] {
				return fmt.Errorf("steps[%d]: alias %q already used", i, step.As)
			}
			aliases[step.As] = true
		}
		if step.Expect != nil {
			return fmt.Errorf("steps[%d]: expect is not allowed on new", i)
		}
	case step.Call != "":
		if step.On == "" {
			return fmt.Errorf("steps[%d]: on is required for call", i)
		}
		if !aliases[step.On] {
			return fmt.Errorf("steps[%d]: unknown instance %q", i, step.On)
		}
	default:
		if step.Class == "" {
			return fmt.Errorf("steps[%d]: class is required for static_call", i)
		}
	}
	if step.Expect != nil && step.ExpectError != "" {
		return fmt.Errorf("steps[%d]: expect and expect_error are mutually exclusive", i)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertField:
		if a.Instance == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: instance and field are required for field", index)
		}
		switch a.Tier {
		case "", "public":
		case "private", "protected":
			if a.Class == "" {
				return fmt.Errorf("assertions[%d]: class is required for the %s tier", index, a.Tier)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown tier %q", index, a.Tier)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

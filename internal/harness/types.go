package harness

import (
	"fmt"

	"github.com/roach88/classkit/internal/ir"
)

// Trace entry types.
const (
	TraceConstruct  = "construct"
	TraceNewFailed  = "new"
	TraceCall       = "call"
	TraceStaticCall = "static_call"
)

// TraceEvent is one entry of a scenario trace: a construction event read
// back from the store, a failed instantiation, or a method call.
type TraceEvent struct {
	Type  string `json:"type"`
	Seq   int64  `json:"seq"`
	RunID string `json:"run_id,omitempty"`
	Class string `json:"class"`

	// Construction events.
	Target string `json:"target,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Depth  int    `json:"depth"`

	// Calls.
	On     string     `json:"on,omitempty"`
	Method string     `json:"method,omitempty"`
	Args   ir.IRArray `json:"args,omitempty"`
	Result ir.IRValue `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Label names the entry for trace assertions:
//
//	Duck begin
//	Duck explicit Animal
//	call larry.quack
//	static Duck.isAnimal
//	new Goose
func (e TraceEvent) Label() string {
	switch e.Type {
	case TraceConstruct:
		if e.Target != "" && e.Target != e.Class {
			return fmt.Sprintf("%s %s %s", e.Class, e.Kind, e.Target)
		}
		return fmt.Sprintf("%s %s", e.Class, e.Kind)
	case TraceCall:
		return fmt.Sprintf("call %s.%s", e.On, e.Method)
	case TraceStaticCall:
		return fmt.Sprintf("static %s.%s", e.Class, e.Method)
	default:
		return fmt.Sprintf("new %s", e.Class)
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every entry in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`

	// Instances maps step aliases to the snapshot stored for their run.
	Instances map[string]ir.InstanceSnapshot `json:"instances,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Errors:    []string{},
		Instances: make(map[string]ir.InstanceSnapshot),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

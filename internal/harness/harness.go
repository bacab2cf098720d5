package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/store"
	"github.com/roach88/classkit/internal/testutil"
)

// Harness runs one scenario against a real engine backed by an in-memory
// store.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	clock     *testutil.DeterministicClock
	logger    *slog.Logger
	instances map[string]*engine.Instance
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh in-memory database, a clock starting at 0 and
// sequential run ids, so the same scenario always yields the same trace.
// Errors are returned only when the scenario cannot run at all (specs fail
// to compile or validate); failed expectations land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	specs, err := compiler.CompileFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewDeterministicClock()
	eng, err := engine.New(specs,
		engine.WithStore(st),
		engine.WithClock(clock),
		engine.WithRunIDs(testutil.NewSequentialRunIDs(scenario.RunPrefix)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load classes: %w", err)
	}

	h := &Harness{
		store:     st,
		engine:    eng,
		clock:     clock,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		instances: make(map[string]*engine.Instance),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	args, err := convertArgs(step.Args)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}

	switch {
	case step.New != "":
		return h.executeNew(ctx, i, step, args, result)

	case step.Call != "":
		inst, ok := h.instances[step.On]
		if !ok {
			result.AddError(fmt.Sprintf("steps[%d]: instance %q was not constructed", i, step.On))
			return nil
		}
		got, callErr := h.engine.Call(ctx, inst, step.Call, args)
		result.Trace = append(result.Trace, TraceEvent{
			Type:   TraceCall,
			Seq:    h.clock.Next(),
			RunID:  inst.RunID,
			Class:  inst.Class,
			On:     step.On,
			Method: step.Call,
			Args:   args,
			Result: got,
			Error:  string(engine.CodeOf(callErr)),
		})
		return h.checkOutcome(i, step, got, callErr, result)

	default:
		got, callErr := h.engine.CallStatic(ctx, step.Class, step.StaticCall, args)
		result.Trace = append(result.Trace, TraceEvent{
			Type:   TraceStaticCall,
			Seq:    h.clock.Next(),
			Class:  step.Class,
			Method: step.StaticCall,
			Args:   args,
			Result: got,
			Error:  string(engine.CodeOf(callErr)),
		})
		return h.checkOutcome(i, step, got, callErr, result)
	}
}

// executeNew instantiates a class and appends the construction events as
// stored, so the trace reflects what was persisted.
func (h *Harness) executeNew(ctx context.Context, i int, step Step, args ir.IRArray, result *Result) error {
	inst, err := h.engine.Instantiate(ctx, step.New, args)
	if err != nil {
		code := engine.CodeOf(err)
		if code == "" {
			return err
		}
		result.Trace = append(result.Trace, TraceEvent{
			Type:  TraceNewFailed,
			Seq:   h.clock.Next(),
			Class: step.New,
			Args:  args,
			Error: string(code),
		})
		return h.checkOutcome(i, step, nil, err, result)
	}

	events, err := h.store.ReadRunEvents(ctx, inst.RunID)
	if err != nil {
		return fmt.Errorf("read events of %s: %w", inst.RunID, err)
	}
	for _, ev := range events {
		result.Trace = append(result.Trace, TraceEvent{
			Type:   TraceConstruct,
			Seq:    ev.Seq,
			RunID:  ev.RunID,
			Class:  ev.Class,
			Target: ev.Target,
			Kind:   ev.Kind,
			Depth:  ev.Depth,
		})
	}

	if step.As != "" {
		snap, _, err := h.store.ReadSnapshot(ctx, inst.RunID)
		if err != nil {
			return fmt.Errorf("read snapshot of %s: %w", inst.RunID, err)
		}
		h.instances[step.As] = inst
		result.Instances[step.As] = snap
	}

	h.logger.Info("step completed", "step", i, "new", step.New, "run_id", inst.RunID, "events", len(events))
	return h.checkOutcome(i, step, nil, nil, result)
}

// checkOutcome compares a step's outcome with expect and expect_error.
func (h *Harness) checkOutcome(i int, step Step, got ir.IRValue, err error, result *Result) error {
	if err != nil {
		code := string(engine.CodeOf(err))
		switch {
		case step.ExpectError == "":
			result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, err))
		case step.ExpectError != code:
			result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got %s", i, step.ExpectError, code))
		}
		return nil
	}

	if step.ExpectError != "" {
		result.AddError(fmt.Sprintf("steps[%d]: expected error %s, got success", i, step.ExpectError))
		return nil
	}
	if step.Expect == nil {
		return nil
	}

	want, convErr := ir.FromNative(step.Expect)
	if convErr != nil {
		return fmt.Errorf("expect: %w", convErr)
	}
	equal, cmpErr := sameValue(want, got)
	if cmpErr != nil {
		return cmpErr
	}
	if !equal {
		result.AddError(fmt.Sprintf("steps[%d]: expected %s, got %s", i, describe(want), describe(got)))
	}
	return nil
}

// convertArgs converts YAML-decoded args to IR values. Floats are
// rejected.
func convertArgs(args []any) (ir.IRArray, error) {
	out := make(ir.IRArray, len(args))
	for i, a := range args {
		v, err := ir.FromNative(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

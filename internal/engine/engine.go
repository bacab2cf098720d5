package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/classkit/internal/class"
	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/object"
	"github.com/roach88/classkit/internal/store"
)

// Engine materializes class specs and constructs instances of them,
// recording every construction as a run.
//
// Instantiate holds a mutex for the whole construction so the seqs of one
// run are contiguous. Class composition itself is synchronous.
type Engine struct {
	registry *Registry
	store    *store.Store
	clock    Sequencer
	runIDs   RunIDGenerator

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists classes and runs to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithClock replaces the default Clock.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDs replaces the default UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New validates specs, orders them by inheritance and materializes every
// class. Any validation failure, unknown parent or inheritance cycle
// aborts the whole set.
func New(specs []ir.ClassSpec, opts ...Option) (*Engine, error) {
	e := &Engine{
		registry: NewRegistry(),
		clock:    NewClock(),
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, spec := range specs {
		if errs := compiler.Validate(spec); len(errs) > 0 {
			return nil, NewSpecError(spec.Name, errs)
		}
	}
	ordered, err := compiler.Order(specs)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidSpec, Message: "class graph", Err: err}
	}

	for _, spec := range ordered {
		entry, err := materialize(spec, e.registry)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeInvalidSpec, Message: "materialize", Class: spec.Name, Err: err}
		}
		if err := e.registry.Register(entry); err != nil {
			return nil, err
		}
		slog.Debug("class materialized",
			"class", spec.Name,
			"extends", spec.Extends,
			"spec_hash", entry.Hash,
		)
	}
	return e, nil
}

// Registry returns the engine's class registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Instance is a constructed object and the record of its construction.
type Instance struct {
	RunID    string
	Class    string
	Object   *object.Object
	Events   []ir.ConstructionEvent
	Snapshot ir.InstanceSnapshot
	Digest   string
}

// Instantiate constructs className with args. With a store configured
// the class chain, the run, its events and its snapshot are persisted.
func (e *Engine) Instantiate(ctx context.Context, className string, args ir.IRArray) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := e.registry.Lookup(className)
	if !ok {
		return nil, &RuntimeError{Code: ErrCodeUnknownClass, Message: fmt.Sprintf("no class named %q", className), Class: className}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	run := ir.Run{
		ID:            e.runIDs.Generate(),
		Class:         className,
		Args:          args,
		Seq:           e.clock.Next(),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if run.Args == nil {
		run.Args = ir.IRArray{}
	}
	run.SpecHashes = make(map[string]string, len(entry.chain))
	for _, c := range entry.chain {
		run.SpecHashes[c.Spec.Name] = c.Hash
	}

	var events []ir.ConstructionEvent
	rec := class.RecorderFunc(func(ev class.Event) {
		events = append(events, ir.ConstructionEvent{
			RunID:  run.ID,
			Seq:    e.clock.Next(),
			Class:  ev.Class,
			Target: ev.Target,
			Kind:   string(ev.Kind),
			Depth:  ev.Depth,
		})
	})

	obj, err := entry.Class.NewRecorded(rec, toNativeArgs(args)...)
	if err != nil {
		slog.Debug("construction failed", "class", className, "run_id", run.ID, "error", err)
		return nil, &RuntimeError{
			Code:    ErrCodeConstructionFailed,
			Message: "construction failed",
			Class:   className,
			RunID:   run.ID,
			Err:     err,
		}
	}

	inst := &Instance{
		RunID:    run.ID,
		Class:    className,
		Object:   obj,
		Events:   events,
		Snapshot: snapshot(entry, obj, run.ID),
	}

	if e.store != nil {
		for _, c := range entry.chain {
			if err := e.store.WriteClass(ctx, c.Record()); err != nil {
				return nil, fmt.Errorf("persist class %s: %w", c.Spec.Name, err)
			}
		}
		if inst.Digest, err = e.store.RecordRun(ctx, run, events, inst.Snapshot); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", run.ID, err)
		}
	} else if inst.Digest, err = ir.SnapshotDigest(inst.Snapshot); err != nil {
		return nil, err
	}

	slog.Info("instance constructed",
		"class", className,
		"run_id", run.ID,
		"seq", run.Seq,
		"events", len(events),
		"digest", inst.Digest,
	)
	return inst, nil
}

// Call invokes a public method on inst.
func (e *Engine) Call(ctx context.Context, inst *Instance, method string, args ir.IRArray) (ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return invoke(inst.Object, inst.Class, inst.RunID, method, args)
}

// CallStatic invokes a public static member of className.
func (e *Engine) CallStatic(ctx context.Context, className, method string, args ir.IRArray) (ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := e.registry.Lookup(className)
	if !ok {
		return nil, &RuntimeError{Code: ErrCodeUnknownClass, Message: fmt.Sprintf("no class named %q", className), Class: className}
	}
	return invoke(entry.Class.Static(), className, "", method, args)
}

func invoke(recv *object.Object, className, runID, method string, args ir.IRArray) (ir.IRValue, error) {
	if !recv.Has(object.Name(method)) {
		return nil, &RuntimeError{Code: ErrCodeUnknownMethod, Message: fmt.Sprintf("no method %q", method), Class: className, RunID: runID}
	}
	out, err := recv.Call(method, toNativeArgs(args)...)
	if err != nil {
		var nc *object.NotCallableError
		if errors.As(err, &nc) && !nc.Missing && nc.Key == object.Name(method) {
			return nil, &RuntimeError{Code: ErrCodeUnknownMethod, Message: fmt.Sprintf("%q is not a method", method), Class: className, RunID: runID}
		}
		return nil, &RuntimeError{Code: ErrCodeMethodFailed, Message: fmt.Sprintf("method %q", method), Class: className, RunID: runID, Err: err}
	}
	v, err := ir.FromNative(out)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("result of %q", method), Class: className, RunID: runID, Err: err}
	}
	slog.Debug("method called", "class", className, "run_id", runID, "method", method)
	return v, nil
}

func toNativeArgs(args ir.IRArray) []object.Value {
	out := make([]object.Value, len(args))
	for i, a := range args {
		out[i] = ir.ToNative(a)
	}
	return out
}

// snapshot captures the instance's public fields and, per class in the
// chain, the fields held in its private and protected views. Members that
// are not IR values (methods, objects) are left out.
func snapshot(entry *ClassEntry, obj *object.Object, runID string) ir.InstanceSnapshot {
	snap := ir.InstanceSnapshot{
		RunID:  runID,
		Class:  entry.Spec.Name,
		Public: fieldsOf(obj),
		Chain:  make([]ir.TierState, 0, len(entry.chain)),
	}
	for _, c := range entry.chain {
		snap.Chain = append(snap.Chain, ir.TierState{
			Class:     c.Spec.Name,
			Private:   fieldsOf(obj.Slot(c.privateKey)),
			Protected: fieldsOf(obj.Slot(c.protectedKey)),
		})
	}
	return snap
}

func fieldsOf(o *object.Object) ir.IRObject {
	out := ir.IRObject{}
	if o == nil {
		return out
	}
	for _, name := range o.OwnNames() {
		if name == object.PublicName && o.Public() != nil {
			continue
		}
		v, _ := o.GetOwn(object.Name(name))
		if irv, err := ir.FromNative(v); err == nil {
			out[name] = irv
		}
	}
	return out
}

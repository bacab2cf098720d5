package class

import (
	"fmt"

	"github.com/roach88/classkit/internal/object"
)

// EventKind classifies a construction event.
type EventKind string

const (
	// EventBegin marks the start of a class's construction step.
	EventBegin EventKind = "begin"

	// EventExplicit marks a superclass constructed through Super.Call.
	EventExplicit EventKind = "explicit"

	// EventImplicit marks a superclass constructed by the final sweep.
	EventImplicit EventKind = "implicit"

	// EventConstructor marks the class's own constructor running.
	EventConstructor EventKind = "constructor"

	// EventEnd marks the end of a class's construction step.
	EventEnd EventKind = "end"
)

// Event is one step of an instantiation. Target is the superclass for
// explicit and implicit events and the class itself otherwise.
type Event struct {
	Class  string    `json:"class"`
	Target string    `json:"target"`
	Kind   EventKind `json:"kind"`
	Depth  int       `json:"depth"`
}

// Recorder receives construction events in the order they happen.
type Recorder interface {
	Record(Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

// Record calls f.
func (f RecorderFunc) Record(ev Event) { f(ev) }

// superState tracks one direct superclass during a construction pass.
// Transitions only go forward: pending -> explicit or pending -> implicit.
type superState uint8

const (
	superPending superState = iota
	superExplicit
	superImplicit
)

// construction is the transient state of one class's step in an
// instantiation.
type construction struct {
	class  *Class
	self   *object.Object
	rec    Recorder
	depth  int
	states map[string]superState // by superclass name
}

func (p *construction) record(kind EventKind, target string) {
	if p.rec == nil {
		return
	}
	p.rec.Record(Event{Class: p.class.name, Target: target, Kind: kind, Depth: p.depth})
}

// Super is the capability handed to a super initializer.
type Super struct {
	pass *construction
}

// Call runs the named direct superclass's construction against the
// instance being built. Each direct superclass may be called at most once
// per instantiation; superclasses never called are constructed with no
// arguments after the initializer returns.
func (s *Super) Call(name string, args ...object.Value) error {
	p := s.pass
	var target *Class
	for _, sc := range p.class.supers {
		if sc.name == name {
			target = sc
			break
		}
	}
	if target == nil {
		return &NoSuchSuperclassError{Class: p.class.name, Super: name}
	}
	if p.states[name] != superPending {
		return &DuplicateSuperConstructionError{Class: p.class.name, Super: name}
	}
	p.states[name] = superExplicit
	p.record(EventExplicit, name)
	_, err := target.construct(p.self, args, p.rec, p.depth+1)
	return err
}

// Names returns the names of the direct superclasses in declaration order.
func (s *Super) Names() []string {
	names := make([]string, len(s.pass.class.supers))
	for i, sc := range s.pass.class.supers {
		names[i] = sc.name
	}
	return names
}

// New constructs a fresh instance.
func (c *Class) New(args ...object.Value) (*object.Object, error) {
	return c.construct(nil, args, nil, 0)
}

// NewRecorded constructs a fresh instance, reporting each construction
// step to rec.
func (c *Class) NewRecorded(rec Recorder, args ...object.Value) (*object.Object, error) {
	return c.construct(nil, args, rec, 0)
}

// Apply runs this class's construction against self. A nil self behaves
// like New. A non-nil self is reused as the instance identity, which is
// how a subclass constructs its superclasses.
func (c *Class) Apply(self *object.Object, args ...object.Value) (*object.Object, error) {
	return c.construct(self, args, nil, 0)
}

func (c *Class) construct(self *object.Object, args []object.Value, rec Recorder, depth int) (*object.Object, error) {
	if self == nil {
		var err error
		if self, err = c.newIdentity(); err != nil {
			return nil, err
		}
	}

	if err := bindScope(self, c.privateKey, c.privateStorage); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if err := bindScope(self, c.protectedKey, c.protectedStorage); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	pass := &construction{
		class:  c,
		self:   self,
		rec:    rec,
		depth:  depth,
		states: make(map[string]superState, len(c.supers)),
	}
	pass.record(EventBegin, c.name)

	if c.initializer != nil {
		if err := c.initializer(&Super{pass: pass}, args...); err != nil {
			return nil, fmt.Errorf("%s: super initializer: %w", c.name, err)
		}
	}

	for _, sc := range c.supers {
		if pass.states[sc.name] != superPending {
			continue
		}
		pass.states[sc.name] = superImplicit
		pass.record(EventImplicit, sc.name)
		if _, err := sc.construct(self, nil, rec, depth+1); err != nil {
			return nil, fmt.Errorf("%s: implicit construction of %s: %w", c.name, sc.name, err)
		}
	}

	if c.constructor != nil {
		pass.record(EventConstructor, c.name)
		if err := c.constructor(self, args...); err != nil {
			return nil, fmt.Errorf("%s: constructor: %w", c.name, err)
		}
	}

	pass.record(EventEnd, c.name)
	return self, nil
}

// newIdentity allocates the object an instantiation starts from.
func (c *Class) newIdentity() (*object.Object, error) {
	if c.contextFactory == nil {
		return object.New(c.prototype), nil
	}
	self, err := c.contextFactory()
	if err != nil {
		return nil, fmt.Errorf("%s: instance context: %w", c.name, err)
	}
	if self == nil {
		return nil, fmt.Errorf("%s: instance context factory returned nil", c.name)
	}
	if err := self.SetProto(c.prototype); err != nil {
		return nil, fmt.Errorf("%s: instance context: %w", c.name, err)
	}
	return self, nil
}

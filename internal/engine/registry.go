package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/classkit/internal/class"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/object"
)

// ClassEntry is a materialized class together with its spec and the keys
// its members were defined under.
type ClassEntry struct {
	Spec  ir.ClassSpec
	Class *class.Class
	Hash  string

	privateKey   *object.Symbol
	protectedKey *object.Symbol

	// chain is the entry itself followed by its ancestors, deduplicated,
	// in first-seen order.
	chain []*ClassEntry
}

// Chain returns the names of the class and its ancestors.
func (e *ClassEntry) Chain() []string {
	names := make([]string, len(e.chain))
	for i, c := range e.chain {
		names[i] = c.Spec.Name
	}
	return names
}

// Record returns the storable form of the entry.
func (e *ClassEntry) Record() ir.ClassRecord {
	return ir.ClassRecord{
		Name:     e.Spec.Name,
		SpecHash: e.Hash,
		Supers:   slices.Clone(e.Spec.Extends),
		Spec:     e.Spec,
	}
}

// Registry maps class names to entries. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*ClassEntry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*ClassEntry)}
}

// Register adds an entry. Names are unique.
func (r *Registry) Register(e *ClassEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Spec.Name
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("class %q already registered", name)
	}
	r.entries[name] = e
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (*ClassEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns registered class names in registration order, which is
// always a valid dependency order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

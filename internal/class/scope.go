package class

import (
	"slices"

	"github.com/roach88/classkit/internal/object"
)

// SuperAlias is the extra scope name given to the only direct superclass.
const SuperAlias = "super"

// ScopeTable maps ancestor names (and SuperAlias, for single inheritance)
// to the ancestor's protected key. It is immutable once built.
type ScopeTable struct {
	names []string
	keys  map[string]*object.Symbol
}

// Lookup returns the protected key registered under name.
func (t ScopeTable) Lookup(name string) (*object.Symbol, bool) {
	k, ok := t.keys[name]
	return k, ok
}

// Key returns the protected key registered under name, or nil.
func (t ScopeTable) Key(name string) *object.Symbol {
	return t.keys[name]
}

// Names returns the scope names in the order they were added.
func (t ScopeTable) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of entries.
func (t ScopeTable) Len() int {
	return len(t.names)
}

// buildScopeTable registers every ancestor under its own name, then the
// single direct superclass (if there is exactly one) under SuperAlias.
func buildScopeTable(direct, all []*Class) (ScopeTable, error) {
	t := ScopeTable{keys: make(map[string]*object.Symbol, len(all)+1)}
	for _, c := range all {
		if err := t.add(c.name, c.protectedKey); err != nil {
			return ScopeTable{}, err
		}
	}
	if len(direct) == 1 {
		if err := t.add(SuperAlias, direct[0].protectedKey); err != nil {
			return ScopeTable{}, err
		}
	}
	return t, nil
}

func (t *ScopeTable) add(name string, key *object.Symbol) error {
	if name == "" {
		return &InvalidScopeArgumentError{Reason: "scope name must be a non-empty string"}
	}
	if key == nil {
		return &InvalidScopeArgumentError{Reason: "scope " + name + " has no key"}
	}
	if _, exists := t.keys[name]; exists {
		return &ScopeNamingConflictError{Scope: name}
	}
	t.keys[name] = key
	t.names = append(t.names, name)
	return nil
}

// collectAncestors returns the direct superclasses followed by each one's
// ancestors, deduplicated by identity in first-seen order.
func collectAncestors(direct []*Class) []*Class {
	seen := make(map[*Class]bool)
	var all []*Class
	push := func(c *Class) {
		if !seen[c] {
			seen[c] = true
			all = append(all, c)
		}
	}
	for _, c := range direct {
		push(c)
		for _, a := range c.ancestors {
			push(a)
		}
	}
	return all
}

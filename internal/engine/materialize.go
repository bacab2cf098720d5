package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/class"
	"github.com/roach88/classkit/internal/compiler"
	"github.com/roach88/classkit/internal/ir"
	"github.com/roach88/classkit/internal/object"
)

// materialize creates the class for spec. Parents must already be in reg.
func materialize(spec ir.ClassSpec, reg *Registry) (*ClassEntry, error) {
	hash, err := ir.SpecHash(spec)
	if err != nil {
		return nil, err
	}
	entry := &ClassEntry{Spec: spec, Hash: hash}
	entry.chain = []*ClassEntry{entry}
	seen := map[string]bool{spec.Name: true}

	supers := make([]*class.Class, len(spec.Extends))
	for i, name := range spec.Extends {
		parent, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("parent %q of %s is not materialized", name, spec.Name)
		}
		supers[i] = parent.Class
		for _, a := range parent.chain {
			if !seen[a.Spec.Name] {
				seen[a.Spec.Name] = true
				entry.chain = append(entry.chain, a)
			}
		}
	}

	c, err := class.Create(spec.Name, supers, definer(entry))
	if err != nil {
		return nil, err
	}
	entry.Class = c
	return entry, nil
}

// definer returns the callback that installs spec's members. It records the
// class's keys on entry so snapshots can find the per-class views later.
func definer(entry *ClassEntry) class.Callback {
	spec := entry.Spec
	return func(proto *object.Object, privateKey, protectedKey *object.Symbol, scopes class.ScopeTable, static *object.Object) (object.Value, error) {
		entry.privateKey = privateKey
		entry.protectedKey = protectedKey
		k := tierKeys{private: privateKey, protected: protectedKey}

		for _, m := range spec.Methods {
			if m.Kind == ir.MethodDelegate && !k.isOwnScope(m.Scope) && scopes.Key(m.Scope) == nil {
				return nil, fmt.Errorf("method %s: no scope named %q", m.Name, m.Scope)
			}
			target := k.container(proto, m.Tier)
			if err := target.Set(object.Name(m.Name), instanceMethod(m, k, scopes)); err != nil {
				return nil, err
			}
		}

		sections := []struct {
			tier    ir.Tier
			methods []ir.MethodSpec
		}{
			{ir.TierPublic, spec.Static},
			{ir.TierPrivate, spec.StaticPrivate},
			{ir.TierProtected, spec.StaticProtected},
		}
		for _, sec := range sections {
			target := k.container(static, sec.tier)
			for _, m := range sec.methods {
				if err := target.Set(object.Name(m.Name), staticMethod(m, k, static)); err != nil {
					return nil, err
				}
			}
		}

		var (
			ctor class.Constructor
			init class.Initializer
		)
		if len(spec.Fields)+len(spec.Params) > 0 {
			ctor = constructor(spec, k)
		}
		if len(spec.Super) > 0 {
			init = initializer(spec)
		}
		return class.Returns(ctor, init, nil), nil
	}
}

// tierKeys are one class's private and protected keys.
type tierKeys struct {
	private   *object.Symbol
	protected *object.Symbol
}

func (k tierKeys) isOwnScope(scope string) bool {
	return scope == compiler.ScopePrivate || scope == compiler.ScopeProtected
}

// container returns the member container of tier under holder: holder
// itself for public, otherwise the slot under the matching key.
func (k tierKeys) container(holder *object.Object, tier ir.Tier) *object.Object {
	switch tier {
	case ir.TierPrivate:
		return holder.Slot(k.private)
	case ir.TierProtected:
		return holder.Slot(k.protected)
	default:
		return holder
	}
}

// identity returns the instance a receiver belongs to. Methods found on a
// private or protected view run with the view as receiver.
func identity(this *object.Object) *object.Object {
	if inst := this.Public(); inst != nil {
		return inst
	}
	return this
}

func constructor(spec ir.ClassSpec, k tierKeys) class.Constructor {
	return func(this *object.Object, args ...object.Value) error {
		for _, f := range spec.Fields {
			if err := setOn(this, k, f.Tier, f.Name, ir.ToNative(f.Value)); err != nil {
				return err
			}
		}
		for i, p := range spec.Params {
			var v object.Value
			if i < len(args) {
				v = args[i]
			}
			if err := setOn(this, k, p.Tier, p.Name, v); err != nil {
				return err
			}
		}
		return nil
	}
}

func setOn(this *object.Object, k tierKeys, tier ir.Tier, name string, v object.Value) error {
	target := k.container(this, tier)
	if target == nil {
		return fmt.Errorf("no %s scope bound for %q", tier, name)
	}
	return target.Set(object.Name(name), v)
}

// initializer issues the declared super calls, substituting "$param"
// references with the matching constructor argument.
func initializer(spec ir.ClassSpec) class.Initializer {
	index := make(map[string]int, len(spec.Params))
	for i, p := range spec.Params {
		index[p.Name] = i
	}
	return func(sup *class.Super, args ...object.Value) error {
		for _, call := range spec.Super {
			resolved := make([]object.Value, len(call.Args))
			for i, a := range call.Args {
				resolved[i] = ir.ToNative(a)
				s, ok := a.(ir.IRString)
				if !ok {
					continue
				}
				if ref, isRef := ir.ParamRef(string(s)); isRef {
					resolved[i] = nil
					if j, known := index[ref]; known && j < len(args) {
						resolved[i] = args[j]
					}
				}
			}
			if err := sup.Call(call.Class, resolved...); err != nil {
				return err
			}
		}
		return nil
	}
}

func instanceMethod(m ir.MethodSpec, k tierKeys, scopes class.ScopeTable) object.Func {
	return func(this *object.Object, args ...object.Value) (object.Value, error) {
		self := identity(this)
		switch m.Kind {
		case ir.MethodDelegate:
			var target *object.Object
			switch m.Scope {
			case compiler.ScopePrivate:
				target = self.Slot(k.private)
			case compiler.ScopeProtected:
				target = self.Slot(k.protected)
			default:
				target = self.Slot(scopes.Key(m.Scope))
			}
			if target == nil {
				return nil, fmt.Errorf("%s: scope %q is not bound on this instance", m.Name, m.Scope)
			}
			return target.Call(m.Method, args...)
		default:
			return evalMember(m, k.container(self, m.Tier), args)
		}
	}
}

func staticMethod(m ir.MethodSpec, k tierKeys, static *object.Object) object.Func {
	return func(this *object.Object, args ...object.Value) (object.Value, error) {
		if m.Kind == ir.MethodDelegate {
			var target *object.Object
			switch m.Scope {
			case compiler.ScopePrivate:
				target = static.Slot(k.private)
			case compiler.ScopeProtected:
				target = static.Slot(k.protected)
			}
			if target == nil {
				return nil, fmt.Errorf("%s: no static scope %q", m.Name, m.Scope)
			}
			return target.Call(m.Method, args...)
		}
		return evalMember(m, this, args)
	}
}

// evalMember runs the const, get and repeat kinds against source.
func evalMember(m ir.MethodSpec, source *object.Object, args []object.Value) (object.Value, error) {
	switch m.Kind {
	case ir.MethodConst:
		return ir.ToNative(m.Value), nil
	case ir.MethodGet, ir.MethodRepeat:
		if source == nil {
			return nil, fmt.Errorf("%s: no %s scope bound", m.Name, m.Tier)
		}
		v, _ := source.Get(object.Name(m.Field))
		if m.Kind == ir.MethodGet {
			return v, nil
		}
		n := 1
		if len(args) > 0 {
			var err error
			if n, err = toCount(args[0]); err != nil {
				return nil, fmt.Errorf("%s: %w", m.Name, err)
			}
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		parts := make([]string, n)
		for i := range parts {
			parts[i] = s
		}
		return strings.Join(parts, m.Sep), nil
	default:
		return nil, fmt.Errorf("%s: unsupported method kind %q", m.Name, m.Kind)
	}
}

func toCount(v object.Value) (int, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case ir.IRInt:
		n = int64(x)
	default:
		return 0, fmt.Errorf("count must be an integer, got %T", v)
	}
	if n < 0 {
		return 0, fmt.Errorf("count must not be negative, got %d", n)
	}
	return int(n), nil
}

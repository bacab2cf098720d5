package object

import (
	"errors"
	"fmt"
	"slices"
)

// Value is any value an object property can hold.
type Value = any

// ErrFrozen is returned when mutating a frozen object.
var ErrFrozen = errors.New("object is frozen")

// PublicName is the member every scope view carries back to its instance.
const PublicName = "public"

// Key is a property key: either a plain name or a symbol.
// Key is comparable and usable as a map key.
type Key struct {
	name string
	sym  *Symbol
}

// Name returns a key for a plain property name.
func Name(name string) Key { return Key{name: name} }

// Sym returns a key for a symbol.
func Sym(s *Symbol) Key { return Key{sym: s} }

// IsSymbol reports whether the key is a symbol key.
func (k Key) IsSymbol() bool { return k.sym != nil }

// Symbol returns the key's symbol, or nil for a name key.
func (k Key) Symbol() *Symbol { return k.sym }

// NameString returns the key's name. It is empty for symbol keys.
func (k Key) NameString() string { return k.name }

func (k Key) String() string {
	if k.sym != nil {
		return k.sym.String()
	}
	return k.name
}

// Func is a method value. this is the object the method was invoked on.
type Func func(this *Object, args ...Value) (Value, error)

// Object is a set of ordered own properties with an optional prototype.
type Object struct {
	proto  *Object
	keys   []Key
	props  map[Key]Value
	frozen bool
}

// New creates an empty object whose prototype is proto (which may be nil).
func New(proto *Object) *Object {
	return &Object{
		proto: proto,
		props: make(map[Key]Value),
	}
}

// Proto returns the object's prototype, or nil.
func (o *Object) Proto() *Object {
	return o.proto
}

// SetProto replaces the object's prototype.
func (o *Object) SetProto(proto *Object) error {
	if o.frozen {
		return ErrFrozen
	}
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return fmt.Errorf("prototype cycle")
		}
	}
	o.proto = proto
	return nil
}

// GetOwn returns an own property.
func (o *Object) GetOwn(k Key) (Value, bool) {
	v, ok := o.props[k]
	return v, ok
}

// HasOwn reports whether k is an own property.
func (o *Object) HasOwn(k Key) bool {
	_, ok := o.props[k]
	return ok
}

// Get looks k up on the object and then along its prototype chain.
func (o *Object) Get(k Key) (Value, bool) {
	for cur := o; cur != nil; cur = cur.proto {
		if v, ok := cur.props[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether k is found on the object or its prototype chain.
func (o *Object) Has(k Key) bool {
	_, ok := o.Get(k)
	return ok
}

// Set creates or overwrites an own property.
func (o *Object) Set(k Key, v Value) error {
	if o.frozen {
		return fmt.Errorf("set %s: %w", k, ErrFrozen)
	}
	if _, ok := o.props[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.props[k] = v
	return nil
}

// Delete removes an own property. Deleting a missing key is a no-op.
func (o *Object) Delete(k Key) error {
	if o.frozen {
		return fmt.Errorf("delete %s: %w", k, ErrFrozen)
	}
	if _, ok := o.props[k]; !ok {
		return nil
	}
	delete(o.props, k)
	o.keys = slices.DeleteFunc(o.keys, func(x Key) bool { return x == k })
	return nil
}

// OwnKeys returns own property keys in insertion order.
func (o *Object) OwnKeys() []Key {
	return slices.Clone(o.keys)
}

// OwnNames returns the names of own name-keyed properties in insertion order.
func (o *Object) OwnNames() []string {
	names := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		if !k.IsSymbol() {
			names = append(names, k.name)
		}
	}
	return names
}

// Len returns the number of own properties.
func (o *Object) Len() int {
	return len(o.keys)
}

// Freeze makes the object's own property set and prototype immutable.
func (o *Object) Freeze() {
	o.frozen = true
}

// IsFrozen reports whether Freeze was called.
func (o *Object) IsFrozen() bool {
	return o.frozen
}

// Assign copies the own properties of src onto o in src's insertion order.
// With noOverwrite, keys already reachable from o (own or inherited) are
// left untouched.
func (o *Object) Assign(src *Object, noOverwrite bool) error {
	for _, k := range src.keys {
		if noOverwrite && o.Has(k) {
			continue
		}
		if err := o.Set(k, src.props[k]); err != nil {
			return err
		}
	}
	return nil
}

// Compose returns a new object holding the own properties of every source,
// applied in order so later sources win.
func Compose(sources ...*Object) *Object {
	composed := New(nil)
	for _, src := range sources {
		// composed is never frozen here.
		_ = composed.Assign(src, false)
	}
	return composed
}

// Slot returns the object stored under sym, looked up along the chain.
// It returns nil when the slot is missing or does not hold an object.
func (o *Object) Slot(sym *Symbol) *Object {
	v, ok := o.Get(Sym(sym))
	if !ok {
		return nil
	}
	obj, _ := v.(*Object)
	return obj
}

// Public returns the instance a scope view belongs to, or nil if o is not
// a scope view.
func (o *Object) Public() *Object {
	v, ok := o.GetOwn(Name(PublicName))
	if !ok {
		return nil
	}
	obj, _ := v.(*Object)
	return obj
}

// Invoke looks k up along the chain and calls it with o as the receiver.
func (o *Object) Invoke(k Key, args ...Value) (Value, error) {
	v, ok := o.Get(k)
	if !ok {
		return nil, &NotCallableError{Key: k, Missing: true}
	}
	switch fn := v.(type) {
	case Func:
		return fn(o, args...)
	case func(*Object, ...Value) (Value, error):
		return fn(o, args...)
	default:
		return nil, &NotCallableError{Key: k}
	}
}

// Call is Invoke for a name key.
func (o *Object) Call(name string, args ...Value) (Value, error) {
	return o.Invoke(Name(name), args...)
}

// NotCallableError is returned by Invoke when the member is missing or is
// not a Func.
type NotCallableError struct {
	Key     Key
	Missing bool
}

func (e *NotCallableError) Error() string {
	if e.Missing {
		return fmt.Sprintf("no member %s", e.Key)
	}
	return fmt.Sprintf("member %s is not callable", e.Key)
}

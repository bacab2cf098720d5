package class

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/classkit/internal/object"
)

// Reserved class names.
const (
	reservedPrefix = "_"
	anonymousName  = "anonymous"
)

// Constructor initializes an instance after its superclasses are built.
type Constructor func(this *object.Object, args ...object.Value) error

// Initializer decides which superclasses to construct explicitly and with
// which arguments. It receives the arguments the class was called with.
type Initializer func(sup *Super, args ...object.Value) error

// ContextFactory supplies the identity object for a fresh instance. The
// class's prototype is installed on whatever it returns.
type ContextFactory func() (*object.Object, error)

// Callback defines a class. It may add members to proto (the public
// instance surface), to proto's private and protected containers
// (proto.Slot(privateKey), proto.Slot(protectedKey)) and to static. It
// returns either a Constructor, nil, or a []object.Value of up to three
// items: Constructor, Initializer, ContextFactory, each possibly nil.
type Callback func(proto *object.Object, privateKey, protectedKey *object.Symbol, scopes ScopeTable, static *object.Object) (object.Value, error)

// Class is a composed class. It is immutable once Create returns.
type Class struct {
	name   string
	supers []*Class
	// ancestors holds direct superclasses and their ancestors, deduplicated.
	ancestors []*Class

	privateKey   *object.Symbol
	protectedKey *object.Symbol

	prototype        *object.Object
	statics          *object.Object
	privateStorage   *object.Object
	protectedStorage *object.Object

	constructor    Constructor
	initializer    Initializer
	contextFactory ContextFactory
}

// Returns packs the three optional callback results in their fixed order.
func Returns(ctor Constructor, init Initializer, ctx ContextFactory) []object.Value {
	return []object.Value{ctor, init, ctx}
}

// IsValidName reports whether name can be used as a class name.
func IsValidName(name string) bool {
	return name != "" &&
		!strings.HasPrefix(name, reservedPrefix) &&
		name != SuperAlias &&
		name != anonymousName
}

// Create composes a class named name from superClasses (which may be nil)
// and the members callback defines.
func Create(name string, superClasses []*Class, callback Callback) (*Class, error) {
	if !IsValidName(name) {
		return nil, &InvalidNameError{Name: name}
	}
	if callback == nil {
		return nil, &InvalidCallbackReturnError{Class: name, Position: -1, Got: "nil callback"}
	}
	direct := slices.Clone(superClasses)
	for i, sc := range direct {
		if sc == nil {
			return nil, &InvalidScopeArgumentError{Reason: fmt.Sprintf("superclass %d of %s is nil", i, name)}
		}
	}

	privateKey := object.NewSymbol("private")
	protectedKey := object.NewSymbol("protected")

	ancestors := collectAncestors(direct)
	scopes, err := buildScopeTable(direct, ancestors)
	if err != nil {
		if conflict, ok := err.(*ScopeNamingConflictError); ok {
			conflict.Class = name
		}
		return nil, err
	}

	proto := mergePrototypes(direct, privateKey, protectedKey)
	staticProto := newStaticContainer(privateKey, protectedKey)

	ret, err := callback(proto, privateKey, protectedKey, scopes, staticProto)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}
	ctor, init, ctxFactory, err := normalizeReturn(name, ret)
	if err != nil {
		return nil, err
	}

	mergedStatics := extendStaticSurface(staticProto, direct)

	storage, err := detachStorage(proto, privateKey, protectedKey)
	if err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}

	c := &Class{
		name:             name,
		supers:           direct,
		ancestors:        ancestors,
		privateKey:       privateKey,
		protectedKey:     protectedKey,
		prototype:        proto,
		privateStorage:   storage[0],
		protectedStorage: storage[1],
		constructor:      ctor,
		initializer:      init,
		contextFactory:   ctxFactory,
	}

	statics := object.New(nil)
	_ = statics.Set(object.Name(StaticNameMember), name)
	_ = statics.Set(object.Name(StaticPrototypeMember), proto)
	if err := inheritStatics(statics, mergedStatics); err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}
	c.statics = statics

	if err := proto.Set(object.Name(ConstructorName), c); err != nil {
		return nil, fmt.Errorf("define %s: %w", name, err)
	}
	proto.Freeze()
	statics.Freeze()

	slog.Debug("class created",
		"class", name,
		"supers", c.superNames(),
		"ancestors", len(ancestors),
		"scopes", scopes.Len(),
	)
	return c, nil
}

// normalizeReturn turns a callback result into its three optional parts.
func normalizeReturn(class string, v object.Value) (Constructor, Initializer, ContextFactory, error) {
	var items []object.Value
	switch r := v.(type) {
	case nil:
		return nil, nil, nil, nil
	case []object.Value:
		items = r
	default:
		items = []object.Value{r}
	}
	if len(items) > 3 {
		return nil, nil, nil, &InvalidCallbackReturnError{
			Class:    class,
			Position: -1,
			Got:      fmt.Sprintf("%d items, at most 3 allowed", len(items)),
		}
	}

	var (
		ctor Constructor
		init Initializer
		ctx  ContextFactory
		ok   bool
	)
	for i, item := range items {
		switch i {
		case 0:
			ctor, ok = asConstructor(item)
		case 1:
			init, ok = asInitializer(item)
		case 2:
			ctx, ok = asContextFactory(item)
		}
		if !ok {
			return nil, nil, nil, &InvalidCallbackReturnError{Class: class, Position: i, Got: fmt.Sprintf("%T", item)}
		}
	}
	return ctor, init, ctx, nil
}

func asConstructor(v object.Value) (Constructor, bool) {
	switch f := v.(type) {
	case nil:
		return nil, true
	case Constructor:
		return f, true
	case func(*object.Object, ...object.Value) error:
		return f, true
	default:
		return nil, false
	}
}

func asInitializer(v object.Value) (Initializer, bool) {
	switch f := v.(type) {
	case nil:
		return nil, true
	case Initializer:
		return f, true
	case func(*Super, ...object.Value) error:
		return f, true
	default:
		return nil, false
	}
}

func asContextFactory(v object.Value) (ContextFactory, bool) {
	switch f := v.(type) {
	case nil:
		return nil, true
	case ContextFactory:
		return f, true
	case func() (*object.Object, error):
		return f, true
	default:
		return nil, false
	}
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// SuperClasses returns the direct superclasses in declaration order.
func (c *Class) SuperClasses() []*Class {
	return slices.Clone(c.supers)
}

// Prototype returns the frozen instance surface shared by all instances.
func (c *Class) Prototype() *object.Object {
	return c.prototype
}

// Static returns the frozen static surface.
func (c *Class) Static() *object.Object {
	return c.statics
}

// CallStatic invokes a static member with the static surface as receiver.
func (c *Class) CallStatic(name string, args ...object.Value) (object.Value, error) {
	return c.statics.Call(name, args...)
}

func (c *Class) String() string {
	return c.name
}

func (c *Class) superNames() []string {
	names := make([]string, len(c.supers))
	for i, sc := range c.supers {
		names[i] = sc.name
	}
	return names
}

package class

import (
	"github.com/roach88/classkit/internal/object"
)

// ConstructorName is the prototype member referring back to the class.
const ConstructorName = "constructor"

// mergePrototypes flattens the direct superclasses' prototypes into one
// fresh object. A superclass declared later overrides one declared earlier.
// The result carries two empty storage containers under this class's own
// private and protected keys; ancestor containers are never copied since
// they were detached from the ancestor prototypes before those were frozen.
func mergePrototypes(direct []*Class, privateKey, protectedKey *object.Symbol) *object.Object {
	protos := make([]*object.Object, len(direct))
	for i, c := range direct {
		protos[i] = c.prototype
	}
	merged := object.Compose(protos...)

	// merged is fresh and unfrozen.
	_ = merged.Set(object.Sym(privateKey), object.New(nil))
	_ = merged.Set(object.Sym(protectedKey), object.New(nil))
	return merged
}

// detachStorage removes the storage containers stored under keys from the
// prototype and returns them in the same order.
func detachStorage(proto *object.Object, keys ...*object.Symbol) ([]*object.Object, error) {
	out := make([]*object.Object, len(keys))
	for i, k := range keys {
		out[i] = proto.Slot(k)
		if out[i] == nil {
			// The callback replaced or removed the container; start empty.
			out[i] = object.New(nil)
		}
		if err := proto.Delete(object.Sym(k)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

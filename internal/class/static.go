package class

import (
	"github.com/roach88/classkit/internal/object"
)

// Members placed on every static surface before inherited statics are
// copied in. Inherited statics never overwrite them.
const (
	StaticNameMember      = "name"
	StaticPrototypeMember = "prototype"
)

// newStaticContainer is the phase-one static surface handed to the
// definition callback: empty apart from this class's static private and
// protected slots.
func newStaticContainer(privateKey, protectedKey *object.Symbol) *object.Object {
	s := object.New(nil)
	_ = s.Set(object.Sym(privateKey), object.New(nil))
	_ = s.Set(object.Sym(protectedKey), object.New(nil))
	return s
}

// extendStaticSurface merges the direct superclasses' finalized statics
// (later declared wins) and then own, which wins over everything inherited.
func extendStaticSurface(own *object.Object, direct []*Class) *object.Object {
	sources := make([]*object.Object, 0, len(direct)+1)
	for _, c := range direct {
		sources = append(sources, c.statics)
	}
	sources = append(sources, own)
	return object.Compose(sources...)
}

// inheritStatics copies merged onto target without overwriting anything
// target already holds.
func inheritStatics(target, merged *object.Object) error {
	return target.Assign(merged, true)
}

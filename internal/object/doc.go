// Package object provides the dynamic object model the class engine is
// built on.
//
// This package has no internal imports. It supplies the primitives a
// prototype-based runtime normally gets for free:
//   - Symbol: opaque, process-unique keys (NewSymbol never repeats)
//   - Key: a property key that is either a plain name or a Symbol
//   - Object: ordered own properties plus an optional prototype link
//   - Func: a method value invoked with an explicit receiver
//
// Objects can be frozen. A frozen object rejects Set, Delete and SetProto
// with ErrFrozen; objects reachable from it are not frozen with it.
package object

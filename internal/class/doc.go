// Package class composes classes with multiple inheritance and three
// visibility tiers on top of package object.
//
// # Composition
//
// Create takes a name, the direct superclasses and a definition callback.
// Before the callback runs, the direct superclasses' prototypes are merged
// into one fresh prototype (a superclass declared later wins on name
// clashes) and two storage containers are attached to it under keys only
// this class holds: one for private members, one for protected members.
// The callback also receives a ScopeTable that maps every ancestor's name
// to that ancestor's protected key, plus "super" when there is exactly one
// direct superclass.
//
// Static members follow the same layering. The callback gets a static
// container with its own private and protected slots; afterwards the
// superclasses' statics are merged under it and copied onto the class's
// static surface without replacing "name" or "prototype".
//
// # Instantiation
//
// Each instantiation binds, per class in the chain, a private and a
// protected view on the instance. A view inherits the class's storage
// container and has a "public" member pointing back at the instance.
//
// Superclass construction runs exactly once per direct superclass: first
// the ones the Initializer names through Super.Call, then the remaining
// ones in declaration order with no arguments. The class's own
// Constructor runs last.
//
// Everything is synchronous and single-threaded. A Class is immutable
// after Create returns and may be shared.
package class

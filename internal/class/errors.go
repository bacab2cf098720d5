package class

import (
	"errors"
	"fmt"
)

// InvalidNameError is returned by Create when a class name is empty,
// starts with the reserved "_" prefix, or is a reserved word.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid class name: %q", e.Name)
}

// ScopeNamingConflictError is returned when two ancestors would expose a
// protected scope under the same name.
type ScopeNamingConflictError struct {
	Class string // class being created
	Scope string // conflicting scope name
}

func (e *ScopeNamingConflictError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("naming conflict in super classes of %s: scope %q", e.Class, e.Scope)
	}
	return fmt.Sprintf("naming conflict in super classes: scope %q", e.Scope)
}

// InvalidScopeArgumentError is returned when a scope table entry is built
// without a usable name.
type InvalidScopeArgumentError struct {
	Reason string
}

func (e *InvalidScopeArgumentError) Error() string {
	return fmt.Sprintf("invalid scope argument: %s", e.Reason)
}

// InvalidCallbackReturnError is returned when a definition callback's
// result does not normalize to [constructor, initializer, context factory].
type InvalidCallbackReturnError struct {
	Class    string
	Position int // -1 when the shape itself is wrong
	Got      string
}

func (e *InvalidCallbackReturnError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("invalid callback return value for %s: %s", e.Class, e.Got)
	}
	return fmt.Sprintf("invalid callback return value for %s: item %d has type %s", e.Class, e.Position, e.Got)
}

// NoSuchSuperclassError is returned by Super.Call for a name that is not
// a direct superclass.
type NoSuchSuperclassError struct {
	Class string
	Super string
}

func (e *NoSuchSuperclassError) Error() string {
	return fmt.Sprintf("%s: no superclass named: %q", e.Class, e.Super)
}

// DuplicateSuperConstructionError is returned by Super.Call when the same
// superclass is explicitly constructed twice in one construction pass.
type DuplicateSuperConstructionError struct {
	Class string
	Super string
}

func (e *DuplicateSuperConstructionError) Error() string {
	return fmt.Sprintf("%s: superclass constructor already called: %q", e.Class, e.Super)
}

// IsInvalidName reports whether err is or wraps an InvalidNameError.
func IsInvalidName(err error) bool {
	var e *InvalidNameError
	return errors.As(err, &e)
}

// IsScopeNamingConflict reports whether err is or wraps a ScopeNamingConflictError.
func IsScopeNamingConflict(err error) bool {
	var e *ScopeNamingConflictError
	return errors.As(err, &e)
}

// IsInvalidCallbackReturn reports whether err is or wraps an InvalidCallbackReturnError.
func IsInvalidCallbackReturn(err error) bool {
	var e *InvalidCallbackReturnError
	return errors.As(err, &e)
}

// IsNoSuchSuperclass reports whether err is or wraps a NoSuchSuperclassError.
func IsNoSuchSuperclass(err error) bool {
	var e *NoSuchSuperclassError
	return errors.As(err, &e)
}

// IsDuplicateSuperConstruction reports whether err is or wraps a
// DuplicateSuperConstructionError.
func IsDuplicateSuperConstruction(err error) bool {
	var e *DuplicateSuperConstructionError
	return errors.As(err, &e)
}

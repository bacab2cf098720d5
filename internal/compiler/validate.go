package compiler

import (
	"fmt"

	"github.com/roach88/classkit/internal/class"
	"github.com/roach88/classkit/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	ErrInvalidClassName     = "E101" // empty, "_"-prefixed or reserved name
	ErrUnknownTier          = "E102" // tier is not public/private/protected
	ErrUnknownMethodKind    = "E103" // kind is not const/get/repeat/delegate
	ErrDuplicateMember      = "E104" // same name twice in one tier
	ErrMissingField         = "E105" // get/repeat without field
	ErrInvalidDelegate      = "E106" // delegate without scope/method, or bad static scope
	ErrSuperNotDirectParent = "E107" // super call names a class not in extends
	ErrDuplicateSuperCall   = "E108" // two super calls to the same class
	ErrUnknownParamRef      = "E109" // "$name" does not name a param
	ErrDuplicateParent      = "E110" // same class listed twice in extends
)

// Scope names a delegate may use to reach the declaring class's own tiers.
const (
	ScopePrivate   = "private"
	ScopeProtected = "protected"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled class spec. Returns all errors found
// (does not fail-fast).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.ClassSpec:
		return validateClassSpec(spec)
	case ir.ClassSpec:
		return validateClassSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateClassSpec(spec *ir.ClassSpec) []ValidationError {
	var errs []ValidationError

	if !class.IsValidName(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid class name %q", spec.Name),
			Code:    ErrInvalidClassName,
		})
	}

	parents := make(map[string]bool)
	for i, p := range spec.Extends {
		if parents[p] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("extends[%d]", i),
				Message: fmt.Sprintf("duplicate parent %q", p),
				Code:    ErrDuplicateParent,
			})
		}
		parents[p] = true
	}

	// Instance members share one namespace per tier.
	members := map[ir.Tier]map[string]bool{}
	claim := func(tier ir.Tier, name, field string) {
		if members[tier] == nil {
			members[tier] = map[string]bool{}
		}
		if members[tier][name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate %s member %q", tier, name),
				Code:    ErrDuplicateMember,
			})
		}
		members[tier][name] = true
	}

	for i, f := range spec.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		errs = append(errs, validateTier(f.Tier, path)...)
		claim(f.Tier, f.Name, path)
	}

	paramNames := make(map[string]bool)
	for i, p := range spec.Params {
		path := fmt.Sprintf("params[%d]", i)
		errs = append(errs, validateTier(p.Tier, path)...)
		claim(p.Tier, p.Name, path)
		paramNames[p.Name] = true
	}

	called := make(map[string]bool)
	for i, call := range spec.Super {
		path := fmt.Sprintf("super[%d]", i)
		if !parents[call.Class] {
			errs = append(errs, ValidationError{
				Field:   path + ".class",
				Message: fmt.Sprintf("%q is not a direct parent of %s", call.Class, spec.Name),
				Code:    ErrSuperNotDirectParent,
			})
		}
		if called[call.Class] {
			errs = append(errs, ValidationError{
				Field:   path + ".class",
				Message: fmt.Sprintf("%q is constructed more than once", call.Class),
				Code:    ErrDuplicateSuperCall,
			})
		}
		called[call.Class] = true

		for j, arg := range call.Args {
			s, ok := arg.(ir.IRString)
			if !ok {
				continue
			}
			if ref, isRef := ir.ParamRef(string(s)); isRef && !paramNames[ref] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.args[%d]", path, j),
					Message: fmt.Sprintf("unknown param reference %q", s),
					Code:    ErrUnknownParamRef,
				})
			}
		}
	}

	for i, m := range spec.Methods {
		path := fmt.Sprintf("methods[%d]", i)
		errs = append(errs, validateTier(m.Tier, path)...)
		errs = append(errs, validateMethod(m, path, false)...)
		claim(m.Tier, m.Name, path)
	}

	sections := []struct {
		name    string
		methods []ir.MethodSpec
	}{
		{"static", spec.Static},
		{"static_private", spec.StaticPrivate},
		{"static_protected", spec.StaticProtected},
	}
	for _, sec := range sections {
		seen := make(map[string]bool)
		for i, m := range sec.methods {
			path := fmt.Sprintf("%s[%d]", sec.name, i)
			errs = append(errs, validateMethod(m, path, true)...)
			if seen[m.Name] {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("duplicate %s member %q", sec.name, m.Name),
					Code:    ErrDuplicateMember,
				})
			}
			seen[m.Name] = true
		}
	}

	return errs
}

func validateTier(tier ir.Tier, path string) []ValidationError {
	if ir.ValidTiers[tier] {
		return nil
	}
	return []ValidationError{{
		Field:   path + ".tier",
		Message: fmt.Sprintf("invalid tier %q, must be \"public\", \"private\", or \"protected\"", tier),
		Code:    ErrUnknownTier,
	}}
}

func validateMethod(m ir.MethodSpec, path string, static bool) []ValidationError {
	var errs []ValidationError
	switch m.Kind {
	case ir.MethodConst:
	case ir.MethodGet, ir.MethodRepeat:
		if m.Field == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".field",
				Message: fmt.Sprintf("%s method %q requires a field", m.Kind, m.Name),
				Code:    ErrMissingField,
			})
		}
	case ir.MethodDelegate:
		if m.Scope == "" || m.Method == "" {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("delegate method %q requires scope and method", m.Name),
				Code:    ErrInvalidDelegate,
			})
		} else if static && m.Scope != ScopePrivate && m.Scope != ScopeProtected {
			errs = append(errs, ValidationError{
				Field:   path + ".scope",
				Message: fmt.Sprintf("static delegate %q must target %q or %q", m.Name, ScopePrivate, ScopeProtected),
				Code:    ErrInvalidDelegate,
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   path + ".kind",
			Message: fmt.Sprintf("invalid method kind %q", m.Kind),
			Code:    ErrUnknownMethodKind,
		})
	}
	return errs
}

package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/classkit/internal/ir"
)

// CompileClasses compiles every class declared under the top-level
// "class" struct of v, in declaration order.
func CompileClasses(v cue.Value) ([]ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	classVal := v.LookupPath(cue.ParsePath("class"))
	if !classVal.Exists() {
		return nil, nil
	}
	iter, err := classVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.ClassSpec
	for iter.Next() {
		spec, err := CompileClass(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileClass parses a CUE value into a ClassSpec. The class name is the
// value's last path label:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`class: Duck: { extends: ["Animal"] }`)
//	spec, err := CompileClass(v.LookupPath(cue.ParsePath("class.Duck")))
func CompileClass(v cue.Value) (*ir.ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ClassSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	if spec.Extends, err = parseStrings(v, "extends"); err != nil {
		return nil, err
	}
	if spec.Fields, err = parseFields(v); err != nil {
		return nil, err
	}
	if spec.Params, err = parseParams(v); err != nil {
		return nil, err
	}
	if spec.Super, err = parseSuperCalls(v); err != nil {
		return nil, err
	}
	if spec.Methods, err = parseMethods(v, "methods", ""); err != nil {
		return nil, err
	}
	if spec.Static, err = parseMethods(v, "static", ir.TierPublic); err != nil {
		return nil, err
	}
	if spec.StaticPrivate, err = parseMethods(v, "static_private", ir.TierPrivate); err != nil {
		return nil, err
	}
	if spec.StaticProtected, err = parseMethods(v, "static_protected", ir.TierProtected); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseStrings(v cue.Value, field string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// parseFields reads `fields: name: {tier, value}`.
func parseFields(v cue.Value) ([]ir.FieldSpec, error) {
	val := v.LookupPath(cue.ParsePath("fields"))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var fields []ir.FieldSpec
	for iter.Next() {
		name := iter.Label()
		fv := iter.Value()
		tier, err := optionalString(fv, "tier")
		if err != nil {
			return nil, err
		}
		f := ir.FieldSpec{Name: name, Tier: defaultTier(tier)}
		valueVal := fv.LookupPath(cue.ParsePath("value"))
		if valueVal.Exists() {
			if f.Value, err = toIRValue(valueVal, fmt.Sprintf("fields.%s.value", name)); err != nil {
				return nil, err
			}
		} else {
			f.Value = ir.IRNull{}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parseParams reads `params: [{name, tier}]`.
func parseParams(v cue.Value) ([]ir.ParamSpec, error) {
	val := v.LookupPath(cue.ParsePath("params"))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var params []ir.ParamSpec
	for iter.Next() {
		pv := iter.Value()
		name, err := requiredString(pv, "name", "params")
		if err != nil {
			return nil, err
		}
		tier, err := optionalString(pv, "tier")
		if err != nil {
			return nil, err
		}
		params = append(params, ir.ParamSpec{Name: name, Tier: defaultTier(tier)})
	}
	return params, nil
}

// parseSuperCalls reads `super: [{class, args}]`.
func parseSuperCalls(v cue.Value) ([]ir.SuperCall, error) {
	val := v.LookupPath(cue.ParsePath("super"))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var calls []ir.SuperCall
	for iter.Next() {
		sv := iter.Value()
		class, err := requiredString(sv, "class", "super")
		if err != nil {
			return nil, err
		}
		call := ir.SuperCall{Class: class}
		argsVal := sv.LookupPath(cue.ParsePath("args"))
		if argsVal.Exists() {
			args, err := toIRValue(argsVal, fmt.Sprintf("super.%s.args", class))
			if err != nil {
				return nil, err
			}
			arr, ok := args.(ir.IRArray)
			if !ok {
				return nil, &CompileError{
					Field:   fmt.Sprintf("super.%s.args", class),
					Message: "args must be a list",
					Pos:     argsVal.Pos(),
				}
			}
			call.Args = arr
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// parseMethods reads a `name: {tier, kind, ...}` struct. A non-empty
// tier overrides whatever the entries declare; static sections fix the
// tier by the section they appear in.
func parseMethods(v cue.Value, section string, tier ir.Tier) ([]ir.MethodSpec, error) {
	val := v.LookupPath(cue.ParsePath(section))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var methods []ir.MethodSpec
	for iter.Next() {
		name := iter.Label()
		mv := iter.Value()
		m := ir.MethodSpec{Name: name}

		strs := map[string]*string{"field": &m.Field, "scope": &m.Scope, "method": &m.Method, "sep": &m.Sep}
		for key, dst := range strs {
			if *dst, err = optionalString(mv, key); err != nil {
				return nil, err
			}
		}
		kind, err := optionalString(mv, "kind")
		if err != nil {
			return nil, err
		}
		m.Kind = ir.MethodKind(kind)

		declared, err := optionalString(mv, "tier")
		if err != nil {
			return nil, err
		}
		m.Tier = defaultTier(declared)
		if tier != "" {
			m.Tier = tier
		}

		valueVal := mv.LookupPath(cue.ParsePath("value"))
		if valueVal.Exists() {
			if m.Value, err = toIRValue(valueVal, fmt.Sprintf("%s.%s.value", section, name)); err != nil {
				return nil, err
			}
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func defaultTier(s string) ir.Tier {
	if s == "" {
		return ir.TierPublic
	}
	return ir.Tier(s)
}

func optionalString(v cue.Value, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredString(v cue.Value, field, context string) (string, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return "", &CompileError{
			Field:   fmt.Sprintf("%s.%s", context, field),
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// toIRValue converts a concrete CUE value into an IRValue. Floats are
// forbidden.
func toIRValue(v cue.Value, path string) (ir.IRValue, error) {
	if !v.IsConcrete() {
		return nil, &CompileError{Field: path, Message: "value must be concrete", Pos: v.Pos()}
	}
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := toIRValue(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			key := iter.Label()
			elem, err := toIRValue(iter.Value(), path+"."+key)
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float values are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

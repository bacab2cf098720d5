package ir

import (
	"encoding/json"
	"fmt"
)

// Tier names a visibility tier.
type Tier string

const (
	TierPublic    Tier = "public"
	TierPrivate   Tier = "private"
	TierProtected Tier = "protected"
)

// ValidTiers defines allowed member tiers.
var ValidTiers = map[Tier]bool{
	TierPublic:    true,
	TierPrivate:   true,
	TierProtected: true,
}

// MethodKind selects how a declared method behaves when invoked.
type MethodKind string

const (
	// MethodConst returns Value.
	MethodConst MethodKind = "const"
	// MethodGet returns Field read from the method's own tier.
	MethodGet MethodKind = "get"
	// MethodRepeat returns Field repeated N times joined by Sep, where N
	// is the first argument (default 1).
	MethodRepeat MethodKind = "repeat"
	// MethodDelegate invokes Method on the scope named by Scope.
	MethodDelegate MethodKind = "delegate"
)

// ValidMethodKinds defines allowed method kinds.
var ValidMethodKinds = map[MethodKind]bool{
	MethodConst:    true,
	MethodGet:      true,
	MethodRepeat:   true,
	MethodDelegate: true,
}

// ClassSpec is a compiled class declaration.
type ClassSpec struct {
	Name            string       `json:"name"`
	Extends         []string     `json:"extends,omitempty"`
	Fields          []FieldSpec  `json:"fields,omitempty"`
	Params          []ParamSpec  `json:"params,omitempty"`
	Super           []SuperCall  `json:"super,omitempty"`
	Methods         []MethodSpec `json:"methods,omitempty"`
	Static          []MethodSpec `json:"static,omitempty"`
	StaticPrivate   []MethodSpec `json:"static_private,omitempty"`
	StaticProtected []MethodSpec `json:"static_protected,omitempty"`
}

// FieldSpec is a field initialised on every instance by the class's
// constructor.
type FieldSpec struct {
	Name  string  `json:"name"`
	Tier  Tier    `json:"tier"`
	Value IRValue `json:"value"`
}

// UnmarshalJSON decodes Value through UnmarshalIRValue.
func (f *FieldSpec) UnmarshalJSON(data []byte) error {
	type plain FieldSpec
	var aux struct {
		plain
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = FieldSpec(aux.plain)
	v, err := decodeOptional(aux.Value)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	f.Value = v
	return nil
}

// ParamSpec binds the constructor argument at the same position to a
// field of the given tier.
type ParamSpec struct {
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
}

// SuperCall is an explicit superclass construction issued by the
// initializer. String args of the form "$name" refer to a param.
type SuperCall struct {
	Class string  `json:"class"`
	Args  IRArray `json:"args,omitempty"`
}

// MethodSpec declares one method. Which fields matter depends on Kind.
type MethodSpec struct {
	Name   string     `json:"name"`
	Tier   Tier       `json:"tier"`
	Kind   MethodKind `json:"kind"`
	Field  string     `json:"field,omitempty"`
	Value  IRValue    `json:"value,omitempty"`
	Scope  string     `json:"scope,omitempty"`
	Method string     `json:"method,omitempty"`
	Sep    string     `json:"sep,omitempty"`
}

// UnmarshalJSON decodes Value through UnmarshalIRValue.
func (m *MethodSpec) UnmarshalJSON(data []byte) error {
	type plain MethodSpec
	var aux struct {
		plain
		Value json.RawMessage `json:"value,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = MethodSpec(aux.plain)
	v, err := decodeOptional(aux.Value)
	if err != nil {
		return fmt.Errorf("method %q: %w", m.Name, err)
	}
	m.Value = v
	return nil
}

func decodeOptional(raw json.RawMessage) (IRValue, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	return UnmarshalIRValue(raw)
}

// ParamRef reports whether s is a "$name" param reference and returns
// the name.
func ParamRef(s string) (string, bool) {
	if len(s) > 1 && s[0] == '$' {
		return s[1:], true
	}
	return "", false
}

// ConstructionEvent is one step of an instantiation, ordered by Seq
// within its run.
type ConstructionEvent struct {
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Class  string `json:"class"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Depth  int    `json:"depth"`
}

// Run records one instantiation.
type Run struct {
	ID            string  `json:"id"`
	Class         string  `json:"class"`
	Args          IRArray `json:"args"`
	Seq           int64   `json:"seq"`
	EngineVersion string  `json:"engine_version"`
	IRVersion     string  `json:"ir_version"`

	// SpecHashes maps every class in the constructed chain to the spec
	// hash it was built from. Runs recorded before hashes were kept
	// leave it empty.
	SpecHashes map[string]string `json:"spec_hashes,omitempty"`
}

// ClassRecord is a stored class: its spec and content hash.
type ClassRecord struct {
	Name     string    `json:"name"`
	SpecHash string    `json:"spec_hash"`
	Supers   []string  `json:"supers"`
	Spec     ClassSpec `json:"spec"`
}

// TierState is the fields one class holds on an instance, per tier.
type TierState struct {
	Class     string   `json:"class"`
	Private   IRObject `json:"private"`
	Protected IRObject `json:"protected"`
}

// InstanceSnapshot captures an instance after construction.
type InstanceSnapshot struct {
	RunID  string      `json:"run_id"`
	Class  string      `json:"class"`
	Public IRObject    `json:"public"`
	Chain  []TierState `json:"chain"`
}

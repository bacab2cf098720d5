package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/classkit/internal/ir"
)

// marshalCanonicalText converts a value to RFC 8785 canonical JSON TEXT.
func marshalCanonicalText(what string, v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// marshalArgs stores a nil argument list as "[]".
func marshalArgs(args ir.IRArray) (string, error) {
	if args == nil {
		args = ir.IRArray{}
	}
	return marshalCanonicalText("args", args)
}

// unmarshalArgs parses canonical JSON TEXT to IRArray. Large integers
// survive via json.Number inside ir.UnmarshalIRValue.
func unmarshalArgs(data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return ir.IRArray{}, nil
	}
	var arr ir.IRArray
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return arr, nil
}

// marshalStruct routes a tagged struct through JSON into canonical JSON
// so stored text is byte-stable.
func marshalStruct(what string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	irv, err := ir.UnmarshalIRValue(raw)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return marshalCanonicalText(what, irv)
}

func unmarshalStruct(what, data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}

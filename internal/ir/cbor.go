package ir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/text/unicode/norm"
)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("ir: CBOR encoder initialization failed: " + err.Error())
	}
}

// MarshalCBOR encodes v as deterministic CBOR (RFC 8949 core deterministic
// encoding). The layout mirrors MarshalCanonical: bytes are native CBOR
// byte strings, variants are {"$case", "value"} maps and cells are
// {"$id", "value"} maps on first sight and {"$ref"} maps afterwards.
func MarshalCBOR(v Value) ([]byte, error) {
	tree, err := toCBORTree(v, make(map[*Cell]int))
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(tree)
}

// toCBORTree lowers v to plain Go values the encoder understands.
func toCBORTree(v Value, ids map[*Cell]int) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing value")
	case Null:
		return nil, nil
	case String:
		return norm.NFC.String(string(val)), nil
	case Int:
		return int64(val), nil
	case Bool:
		return bool(val), nil
	case Bytes:
		return []byte(val), nil
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			e, err := toCBORTree(elem, ids)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	case Record:
		out := make(map[string]any, len(val))
		for _, k := range val.SortedKeys() {
			e, err := toCBORTree(val[k], ids)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[norm.NFC.String(k)] = e
		}
		return out, nil
	case Variant:
		e, err := toCBORTree(val.Value, ids)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", val.Case, err)
		}
		return map[string]any{KeyCase: val.Case, KeyValue: e}, nil
	case *Cell:
		if val == nil {
			return nil, nil
		}
		if id, ok := ids[val]; ok {
			return map[string]any{KeyRef: id}, nil
		}
		id := len(ids)
		ids[val] = id
		e, err := toCBORTree(val.Value, ids)
		if err != nil {
			return nil, fmt.Errorf("ref #%d: %w", id, err)
		}
		return map[string]any{KeyID: id, KeyValue: e}, nil
	default:
		return nil, fmt.Errorf("unsupported type for CBOR: %T", v)
	}
}

// Diagnose renders CBOR data in extended diagnostic notation.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

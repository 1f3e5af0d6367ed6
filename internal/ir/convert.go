package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// UnmarshalValue deserializes JSON into a writable Value.
// Floats are rejected (CP-5); null becomes Null.
func UnmarshalValue(data []byte) (Value, error) {
	// Use json.Decoder with UseNumber() to detect floats
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}

	return convertRaw(raw)
}

// convertRaw recursively converts decoded JSON into a Value.
func convertRaw(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return numberToInt(val)
	case []any:
		arr := &Array{elems: make([]Value, len(val))}
		for i, elem := range val {
			converted, err := convertRaw(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr.elems[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			converted, err := convertRaw(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj.fields[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// numberToInt accepts integral JSON numbers only.
func numberToInt(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("floats are forbidden (CP-5): %s", s)
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	return Int(i), nil
}

// FromGo converts a Go value into a writable Value that shares no
// containers with v.
//
// Supported inputs: nil, Value (cloned), bool, string, all integer kinds,
// json.Number, []any, map[string]any, and anything encoding/json can
// marshal into one of those (structs, typed slices, typed maps).
// Floats are rejected (CP-5).
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return Clone(val), nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintToInt(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintToInt(val)
	case json.Number:
		return numberToInt(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden (CP-5): %v", val)
	case []any:
		arr := &Array{elems: make([]Value, len(val))}
		for i, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr.elems[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := &Object{fields: make(map[string]Value, len(val))}
		for k, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj.fields[k] = converted
		}
		return obj, nil
	default:
		// Structs, typed slices and maps go through their JSON form.
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("convert %T: %w", v, err)
		}
		converted, err := UnmarshalValue(data)
		if err != nil {
			return nil, fmt.Errorf("convert %T: %w", v, err)
		}
		return converted, nil
	}
}

func uintToInt(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("number out of int64 range: %d", u)
	}
	return Int(u), nil
}

// ToObject converts v with FromGo and requires the result to be an object.
func ToObject(v any) (*Object, error) {
	converted, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	obj, ok := converted.(*Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", KindOf(converted))
	}
	return obj, nil
}

// MustObject is like ToObject but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustObject(v any) *Object {
	obj, err := ToObject(v)
	if err != nil {
		panic(err)
	}
	return obj
}

// Decode writes v into out (a pointer) through its JSON form.
// The result shares nothing with v, so out may be mutated freely.
func Decode(v Value, out any) error {
	data, err := MarshalValue(v)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode into %T: %w", out, err)
	}
	return nil
}

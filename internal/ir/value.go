package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface representing constrained value types.
// Only Null, String, Int, Bool, *Array, and *Object implement this.
// NO Float - floats are forbidden (CP-5, breaks determinism).
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a JSON null value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) irValue() {}

// Int represents an integer value.
// Always int64, never float64 (CP-5).
type Int int64

func (Int) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered sequence of values.
// The zero value is an empty, writable array.
type Array struct {
	elems  []Value
	frozen bool
}

func (*Array) irValue() {}

// Object maps string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object struct {
	fields map[string]Value
	frozen bool
}

func (*Object) irValue() {}

// Pair is a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair for ergonomic construction.
// Example: NewObject(O("name", String("cart")), O("count", Int(5)))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewArray creates a writable Array holding vals.
func NewArray(vals ...Value) *Array {
	elems := make([]Value, len(vals))
	for i, v := range vals {
		elems[i] = orNull(v)
	}
	return &Array{elems: elems}
}

// NewObject creates a writable Object from key-value pairs.
// Later pairs win on duplicate keys.
func NewObject(pairs ...Pair) *Object {
	obj := &Object{fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		obj.fields[p.Key] = orNull(p.Value)
	}
	return obj
}

// NewObjectFromMap creates a writable Object from an existing map.
// The map itself is copied; the values are not.
func NewObjectFromMap(m map[string]Value) *Object {
	obj := &Object{fields: make(map[string]Value, len(m))}
	for k, v := range m {
		obj.fields[k] = orNull(v)
	}
	return obj
}

func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.elems)
}

// At returns the element at index i. It panics if i is out of range,
// like slice indexing.
func (a *Array) At(i int) Value {
	return a.elems[i]
}

// Values returns a copy of the element slice. Writing to the returned
// slice never reaches the array.
func (a *Array) Values() []Value {
	return slices.Clone(a.elems)
}

// Set replaces the element at index i.
func (a *Array) Set(i int, v Value) error {
	if a.frozen {
		return &MutationError{Op: "set", Key: strconv.Itoa(i)}
	}
	if i < 0 || i >= len(a.elems) {
		return fmt.Errorf("array index %d out of range [0,%d)", i, len(a.elems))
	}
	a.elems[i] = orNull(v)
	return nil
}

// Append adds values to the end of the array.
func (a *Array) Append(vals ...Value) error {
	if a.frozen {
		return &MutationError{Op: "append", Key: strconv.Itoa(len(a.elems))}
	}
	for _, v := range vals {
		a.elems = append(a.elems, orNull(v))
	}
	return nil
}

// Frozen reports whether writes to the array are rejected.
func (a *Array) Frozen() bool {
	return a.frozen
}

// Len returns the number of keys.
func (obj *Object) Len() int {
	return len(obj.fields)
}

// Get returns the value stored under key.
func (obj *Object) Get(key string) (Value, bool) {
	v, ok := obj.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (obj *Object) Has(key string) bool {
	_, ok := obj.fields[key]
	return ok
}

// Set stores v under key. A nil v is stored as Null.
func (obj *Object) Set(key string, v Value) error {
	if obj.frozen {
		return &MutationError{Op: "set", Key: key}
	}
	if obj.fields == nil {
		obj.fields = make(map[string]Value)
	}
	obj.fields[key] = orNull(v)
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (obj *Object) Delete(key string) error {
	if obj.frozen {
		return &MutationError{Op: "delete", Key: key}
	}
	delete(obj.fields, key)
	return nil
}

// Frozen reports whether writes to the object are rejected.
func (obj *Object) Frozen() bool {
	return obj.frozen
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj *Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj.fields))
	for k := range obj.fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Must use unicode/utf16.Encode for correct surrogate handling.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for Object with sorted keys (RFC 8785 ordering).
// NOTE: This is NOT canonical marshaling - may have HTML escaping. Use MarshalCanonical
// for content-addressed hashing.
func (obj *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj.fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Array.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range a.elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalValue marshals a Value to JSON bytes.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Bool:
		return json.Marshal(bool(val))
	case *Array:
		return val.MarshalJSON()
	case *Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
// The receiver must not be frozen.
func (obj *Object) UnmarshalJSON(data []byte) error {
	if obj.frozen {
		return &MutationError{Op: "unmarshal"}
	}
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	parsed, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("expected JSON object, got %s", KindOf(v))
	}
	obj.fields = parsed.fields
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
// The receiver must not be frozen.
func (a *Array) UnmarshalJSON(data []byte) error {
	if a.frozen {
		return &MutationError{Op: "unmarshal"}
	}
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	parsed, ok := v.(*Array)
	if !ok {
		return fmt.Errorf("expected JSON array, got %s", KindOf(v))
	}
	a.elems = parsed.elems
	return nil
}

// KindOf names the JSON kind of v for error messages.
func KindOf(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case *Array:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = NewArray(String("a"), Int(1))
	var _ Value = NewObject(O("key", String("value")))
}

func TestObjectSortedKeys(t *testing.T) {
	obj := NewObject(
		O("zebra", String("z")),
		O("apple", String("a")),
		O("banana", String("b")),
	)

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := NewObject(
		O("a", Int(1)), O("A", Int(2)), O("aa", Int(3)),
		O("aA", Int(4)), O("Aa", Int(5)), O("AA", Int(6)),
	)

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"a", "aa", -1},
		{"A", "a", -1},
		{"", "", 0},
		{"", "a", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestNilValuesStoredAsNull(t *testing.T) {
	obj := NewObject(O("missing", nil))
	v, ok := obj.Get("missing")
	require.True(t, ok)
	assert.Equal(t, Null{}, v)

	arr := NewArray(nil, Int(1))
	assert.Equal(t, Null{}, arr.At(0))
}

func TestArrayValuesIsACopy(t *testing.T) {
	arr := NewArray(Int(1), Int(2))
	vals := arr.Values()
	vals[0] = Int(99)

	assert.Equal(t, Int(1), arr.At(0))
}

func TestArraySetOutOfRange(t *testing.T) {
	arr := NewArray(Int(1))
	err := arr.Set(3, Int(2))
	require.Error(t, err)
	assert.False(t, IsMutationError(err))
}

func TestZeroObjectIsWritable(t *testing.T) {
	var obj Object
	require.NoError(t, obj.Set("a", Int(1)))
	assert.Equal(t, 1, obj.Len())
}

func TestMarshalJSONMatchesSortedOrder(t *testing.T) {
	obj := NewObject(
		O("b", NewArray(Bool(true), Null{})),
		O("a", String("<x>")),
	)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	// encoding/json escapes HTML; canonical form does not
	assert.Equal(t, `{"a":"\u003cx\u003e","b":[true,null]}`, string(data))
}

func TestUnmarshalValue(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"n":null,"i":7,"s":"x","l":[1,{"b":false}]}`))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.False(t, obj.Frozen())

	n, _ := obj.Get("n")
	assert.Equal(t, Null{}, n)
	i, _ := obj.Get("i")
	assert.Equal(t, Int(7), i)

	nested, ok := Lookup(obj, "l.1.b")
	require.True(t, ok)
	assert.Equal(t, Bool(false), nested)
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	tests := []string{`1.5`, `{"a":1e3}`, `[2E-1]`}
	for _, input := range tests {
		_, err := UnmarshalValue([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestUnmarshalRejectsTrailingData(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestObjectUnmarshalJSON(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1,2]}`), &obj))

	v, ok := Lookup(&obj, "a.1")
	require.True(t, ok)
	assert.Equal(t, Int(2), v)

	var notObj Object
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &notObj))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "null", KindOf(Null{}))
	assert.Equal(t, "int", KindOf(Int(1)))
	assert.Equal(t, "array", KindOf(NewArray()))
	assert.Equal(t, "object", KindOf(NewObject()))
}

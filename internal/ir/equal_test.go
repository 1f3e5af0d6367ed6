package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same ints", Int(1), Int(1), true},
		{"different ints", Int(1), Int(2), false},
		{"int vs string", Int(1), String("1"), false},
		{"null vs null", Null{}, Null{}, true},
		{"nil vs null", nil, Null{}, true},
		{"null vs zero", Null{}, Int(0), false},
		{"bool", Bool(true), Bool(true), true},
		{"array order matters", NewArray(Int(1), Int(2)), NewArray(Int(2), Int(1)), false},
		{"array length", NewArray(Int(1)), NewArray(Int(1), Int(1)), false},
		{"empty arrays", NewArray(), NewArray(), true},
		{"array vs object", NewArray(), NewObject(), false},
		{
			"objects ignore insertion order",
			NewObject(O("a", Int(1)), O("b", Int(2))),
			NewObject(O("b", Int(2)), O("a", Int(1))),
			true,
		},
		{
			"null field vs missing field",
			NewObject(O("a", Null{})),
			NewObject(),
			false,
		},
		{
			"different key sets same size",
			NewObject(O("a", Int(1))),
			NewObject(O("b", Int(1))),
			false,
		},
		{
			"nested difference",
			MustObject(map[string]any{"s": map[string]any{"foo": map[string]any{"bar": 1}}}),
			MustObject(map[string]any{"s": map[string]any{"foo": map[string]any{"bar": 2}}}),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}

func TestEqualIgnoresFrozenState(t *testing.T) {
	a := sampleTree()
	b := FreezeObject(sampleTree())
	assert.True(t, Equal(a, b))
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeReplacesTopLevelKeysWholesale(t *testing.T) {
	current := FreezeObject(sampleTree())
	partial := MustObject(map[string]any{
		"settings": map[string]any{"foo": map[string]any{"bar": 100}},
	})

	merged := Merge(current, partial)

	assert.False(t, merged.Frozen())
	bar, ok := Lookup(merged, "settings.foo.bar")
	require.True(t, ok)
	assert.Equal(t, Int(100), bar)

	// No deep merge: baz is gone because settings was replaced as a whole.
	_, ok = Lookup(merged, "settings.baz")
	assert.False(t, ok)

	// Untouched keys carry over.
	counter, _ := merged.Get("counter")
	assert.Equal(t, Int(0), counter)

	// Source untouched.
	baz, ok := Lookup(current, "settings.baz")
	require.True(t, ok)
	assert.Equal(t, Int(2), baz)
}

func TestMergeCopiesPartialValues(t *testing.T) {
	current := NewObject(O("list", NewArray()))
	list := NewArray(Int(1))
	partial := NewObject(O("list", list))

	merged := Merge(current, partial)
	require.NoError(t, list.Append(Int(2)))

	got, _ := merged.Get("list")
	assert.Equal(t, 1, got.(*Array).Len())
}

func TestMergeNilPartial(t *testing.T) {
	current := sampleTree()
	merged := Merge(current, nil)
	assert.True(t, Equal(current, merged))
	assert.NotSame(t, current, merged)
}

func TestMergeWithEqualValueIsEqual(t *testing.T) {
	current := FreezeObject(sampleTree())
	merged := Merge(current, MustObject(map[string]any{"counter": 0}))
	assert.True(t, Equal(current, merged))
}

package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedSessionGenerator("test-session-123")

	assert.Equal(t, "test-session-123", gen.Generate())
	assert.Equal(t, "test-session-123", gen.Generate())
}

func TestFixedSessionGenerator_EmptyIDDefault(t *testing.T) {
	gen := NewFixedSessionGenerator("")

	assert.Equal(t, "test-session-default", gen.Generate())
}

func TestFixedSessionGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedSessionGenerator("thread-safe")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe", gen.Generate())
			}
		}()
	}
	wg.Wait()
}

func TestSequenceSessionGenerator_InOrder(t *testing.T) {
	gen := NewSequenceSessionGenerator("s-1", "s-2")

	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-2", gen.Generate())
	assert.PanicsWithValue(t, "SequenceSessionGenerator: all session ids exhausted", func() {
		gen.Generate()
	})
}

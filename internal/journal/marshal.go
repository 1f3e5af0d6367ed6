package journal

import (
	"fmt"

	"github.com/roach88/statebox/internal/ir"
)

// marshalState converts a snapshot to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so identical states store identical text.
func marshalState(state *ir.Object) (string, error) {
	if state == nil {
		return "", fmt.Errorf("marshal state: nil snapshot")
	}
	data, err := ir.MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// unmarshalState parses stored TEXT back into a frozen snapshot.
// Integers round-trip exactly; ir.UnmarshalValue never goes through float64.
func unmarshalState(data string) (*ir.Object, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	obj, ok := v.(*ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal state: expected object, got %s", ir.KindOf(v))
	}
	return ir.FreezeObject(obj), nil
}

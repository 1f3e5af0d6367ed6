package ir

import (
	"errors"
	"fmt"
)

// ErrFrozen is the sentinel wrapped by every MutationError.
var ErrFrozen = errors.New("value is frozen")

// MutationError reports a write attempted on a frozen container.
// It is not retriable: the container will never become writable again.
type MutationError struct {
	// Op is the rejected operation: "set", "append", "delete" or "unmarshal".
	Op string

	// Key is the object key or array index that was targeted.
	Key string
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("FROZEN: cannot %s on frozen value", e.Op)
	}
	return fmt.Sprintf("FROZEN: cannot %s %q on frozen value", e.Op, e.Key)
}

// Unwrap returns ErrFrozen so callers can use errors.Is.
func (e *MutationError) Unwrap() error {
	return ErrFrozen
}

// IsMutationError returns true if err is (or wraps) a MutationError.
func IsMutationError(err error) bool {
	var me *MutationError
	return errors.As(err, &me)
}

// Freeze makes v and every container reachable from it read-only and
// returns v. Children are frozen before their parent, so no nested
// container can escape. Primitives pass through unchanged.
func Freeze(v Value) Value {
	switch val := v.(type) {
	case *Array:
		if val == nil || val.frozen {
			return v
		}
		for _, elem := range val.elems {
			Freeze(elem)
		}
		val.frozen = true
	case *Object:
		if val == nil || val.frozen {
			return v
		}
		for _, field := range val.fields {
			Freeze(field)
		}
		val.frozen = true
	}
	return v
}

// FreezeObject is Freeze for the common object-rooted case.
func FreezeObject(obj *Object) *Object {
	Freeze(obj)
	return obj
}

// IsFrozen reports whether v and everything reachable from it is
// read-only. Primitives are always frozen.
func IsFrozen(v Value) bool {
	switch val := v.(type) {
	case *Array:
		if !val.frozen {
			return false
		}
		for _, elem := range val.elems {
			if !IsFrozen(elem) {
				return false
			}
		}
	case *Object:
		if !val.frozen {
			return false
		}
		for _, field := range val.fields {
			if !IsFrozen(field) {
				return false
			}
		}
	}
	return true
}

package ir

// Equal reports whether a and b have indistinguishable content.
//
// Arrays compare position by position, objects compare by key set and
// per-key value, and Null is an ordinary value. Frozen state and object
// identity play no part.
func Equal(a, b Value) bool {
	a, b = normalizeNil(a), normalizeNil(b)

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case *Array:
		bv, ok := b.(*Array)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		if len(av.elems) != len(bv.elems) {
			return false
		}
		for i := range av.elems {
			if !Equal(av.elems[i], bv.elems[i]) {
				return false
			}
		}
		return true
	case *Object:
		bv, ok := b.(*Object)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		if len(av.fields) != len(bv.fields) {
			return false
		}
		for k, v := range av.fields {
			other, ok := bv.fields[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// normalizeNil maps nil interfaces and nil containers to Null.
func normalizeNil(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case *Array:
		if val == nil {
			return Null{}
		}
	case *Object:
		if val == nil {
			return Null{}
		}
	}
	return v
}

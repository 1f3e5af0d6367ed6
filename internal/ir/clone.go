package ir

// Clone returns a deep copy of v. Arrays and objects are rebuilt and the
// copy is always writable; primitives are shared since they are
// immutable anyway. A nil container clones to Null.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case *Array:
		if val == nil {
			return Null{}
		}
		return cloneArray(val)
	case *Object:
		if val == nil {
			return Null{}
		}
		return CloneObject(val)
	default:
		return v
	}
}

// CloneObject returns a writable deep copy of obj.
func CloneObject(obj *Object) *Object {
	out := &Object{fields: make(map[string]Value, len(obj.fields))}
	for k, v := range obj.fields {
		out.fields[k] = Clone(v)
	}
	return out
}

func cloneArray(a *Array) *Array {
	out := &Array{elems: make([]Value, len(a.elems))}
	for i, v := range a.elems {
		out.elems[i] = Clone(v)
	}
	return out
}

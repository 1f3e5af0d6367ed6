package ir

// Merge builds the candidate snapshot for a partial update.
//
// The result is a writable deep copy of current in which every key of
// partial has been replaced wholesale by a copy of its value. Nothing
// below the top level is merged. Neither argument is modified.
func Merge(current, partial *Object) *Object {
	out := CloneObject(current)
	if partial == nil {
		return out
	}
	for k, v := range partial.fields {
		out.fields[k] = Clone(v)
	}
	return out
}

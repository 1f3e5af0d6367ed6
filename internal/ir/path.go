package ir

import (
	"strconv"
	"strings"
)

// Lookup walks a dotted path through v. Object segments are keys and
// array segments are decimal indices: "settings.foo.bar",
// "objectsArray.1.d.0.name". The empty path returns v itself.
func Lookup(v Value, path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch val := cur.(type) {
		case *Object:
			next, ok := val.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case *Array:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= val.Len() {
				return nil, false
			}
			cur = val.At(i)
		default:
			return nil, false
		}
	}
	return cur, true
}

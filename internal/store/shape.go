package store

import (
	"reflect"
	"strings"
)

// declaredKeys returns the JSON object keys T declares when T is a struct
// (or a pointer to one). Fields tagged omitempty are missing from the
// initial snapshot while they hold their zero value, so the shape cannot
// come from the snapshot alone. Other types declare nothing.
func declaredKeys[T any]() []string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return structKeys(t, nil)
}

// structKeys follows encoding/json naming: the tag name wins, "-" skips
// the field, unexported fields are ignored and untagged embedded structs
// contribute their own fields.
func structKeys(t reflect.Type, keys []string) []string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				keys = structKeys(ft, keys)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}

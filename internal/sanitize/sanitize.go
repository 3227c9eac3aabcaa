// Package sanitize normalizes value trees before they are handed to a
// schema-constrained store. The store rejects Go's "absent" value
// representations (typed nil pointers, nil interfaces) but must still
// record the field as an explicit null, so every absent value is
// rewritten to an untyped nil, arrays are mapped element-wise, and
// opaque timestamps pass through untouched.
package sanitize

import (
	"reflect"
	"time"
)

// Value returns a normalized copy of the tree rooted at v. It is
// idempotent: Value(Value(x)) == Value(x).
func Value(v any) any {
	if v == nil {
		return nil
	}

	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Value(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	}

	// Typed nils (nil *T, nil map, nil slice) arrive as non-nil
	// interfaces; unwrap them to explicit nulls.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Value(rv.Elem().Interface())
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil
		}
	}

	return v
}

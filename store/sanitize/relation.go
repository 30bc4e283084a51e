package sanitize

import (
	"encoding/json"
)

// Relation is either Resolved(T) or Unresolved.
type Relation[T any] struct {
	value    T
	resolved bool
}

// Resolved wraps a joined value.
func Resolved[T any](v T) Relation[T] {
	return Relation[T]{value: v, resolved: true}
}

// Unresolved is the empty relation.
func Unresolved[T any]() Relation[T] {
	return Relation[T]{}
}

// Get returns the joined value and whether it was resolved.
func (r Relation[T]) Get() (T, bool) {
	return r.value, r.resolved
}

// IsResolved reports whether the relation holds a value.
func (r Relation[T]) IsResolved() bool {
	return r.resolved
}

// Ptr returns a pointer to the joined value, or nil.
func (r Relation[T]) Ptr() *T {
	if !r.resolved {
		return nil
	}
	v := r.value
	return &v
}

// Resolve runs Decode for key and converts the sanitized relation into T.
// A relation that is absent, error-marked or does not fit T is Unresolved.
func Resolve[T any](record map[string]any, key string) Relation[T] {
	obj, ok := Decode(record, key)[key].(map[string]any)
	if !ok || obj == nil {
		return Unresolved[T]()
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return Unresolved[T]()
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return Unresolved[T]()
	}
	return Resolved(v)
}

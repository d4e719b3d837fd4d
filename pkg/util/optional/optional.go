// Package optional provides a field wrapper for partial updates that tells apart a field
// missing from a JSON document, a field sent as null, and a field sent with a value.
package optional

import (
	"bytes"
	"encoding/json"
)

// Value holds a possibly absent, possibly null T.
type Value[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a present, non-null Value.
func Of[T any](v T) Value[T] {
	return Value[T]{Set: true, Value: v}
}

// Null returns a present Value explicitly set to null.
func Null[T any]() Value[T] {
	return Value[T]{Set: true, Null: true}
}

// Present reports whether the field carries a non-null value.
func (v Value[T]) Present() bool {
	return v.Set && !v.Null
}

// UnmarshalJSON is only invoked by encoding/json when the key exists in the document.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Null = true
		var zero T
		v.Value = zero
		return nil
	}
	v.Null = false
	return json.Unmarshal(data, &v.Value)
}

// MarshalJSON writes null for absent and null values.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Value)
}

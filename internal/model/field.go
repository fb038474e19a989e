package model

import (
	"bytes"
	"encoding/json"
)

// FieldState is the state of one override field.
type FieldState uint8

const (
	// FieldUnset leaves whatever was stored before untouched.
	FieldUnset FieldState = iota
	// FieldCleared removes the override so the master value is inherited.
	FieldCleared
	// FieldSet overrides the master value.
	FieldSet
)

func (s FieldState) String() string {
	switch s {
	case FieldCleared:
		return "cleared"
	case FieldSet:
		return "set"
	default:
		return "unset"
	}
}

// Field is a three-state value: unset, cleared or set.
//
// When decoded from JSON, a key missing from the object leaves the field Unset,
// an explicit null makes it Cleared and any other value makes it Set. Encoding
// mirrors that: Unset is omitted (with the omitzero tag) and Cleared is null.
type Field[T any] struct {
	state FieldState
	value T
}

// Set returns a field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: FieldSet, value: v}
}

// Cleared returns a field that drops any override.
func Cleared[T any]() Field[T] {
	return Field[T]{state: FieldCleared}
}

// Unset returns a field that leaves stored state alone.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// FieldOf rebuilds a field from a persisted state and value.
func FieldOf[T any](state FieldState, v T) Field[T] {
	switch state {
	case FieldSet:
		return Set(v)
	case FieldCleared:
		return Cleared[T]()
	default:
		return Unset[T]()
	}
}

func (f Field[T]) State() FieldState { return f.state }
func (f Field[T]) IsSet() bool       { return f.state == FieldSet }
func (f Field[T]) IsCleared() bool   { return f.state == FieldCleared }

// IsZero reports whether the field is Unset; used by the omitzero JSON option.
func (f Field[T]) IsZero() bool { return f.state == FieldUnset }

// Get returns the value and whether the field is Set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == FieldSet
}

// Or returns the value when Set and fallback otherwise.
func (f Field[T]) Or(fallback T) T {
	if f.state == FieldSet {
		return f.value
	}
	return fallback
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != FieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Cleared[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

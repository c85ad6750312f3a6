package intel

import (
	"bytes"
	"encoding/json"
)

// Opt holds either a validated value or an explicit unknown marker.
// The zero value is unknown.
type Opt[T any] struct {
	value T
	known bool
}

// Known wraps a present value.
func Known[T any](v T) Opt[T] {
	return Opt[T]{value: v, known: true}
}

// Unknown returns the explicit unknown marker for T.
func Unknown[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.known
}

// IsKnown reports whether a value is present.
func (o Opt[T]) IsKnown() bool {
	return o.known
}

// Or returns the value when present and fallback otherwise.
func (o Opt[T]) Or(fallback T) T {
	if o.known {
		return o.value
	}
	return fallback
}

// MarshalJSON encodes unknown as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as unknown.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Known(v)
	return nil
}

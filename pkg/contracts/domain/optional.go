package domain

import "fmt"

// Optional holds a value that may be absent at the data boundary.
// The zero value is absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional holding v
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the value is set
func (o Optional[T]) Present() bool {
	return o.ok
}

// OrElse returns the value, or fallback when absent
func (o Optional[T]) OrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.value
}

// String renders the value with fmt, or "" when absent.
func (o Optional[T]) String() string {
	if !o.ok {
		return ""
	}
	if s, ok := any(o.value).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(o.value)
}

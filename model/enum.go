package model

import (
	"errors"
	"fmt"
)

// ErrInvalidEnum is returned when a value falls outside one of the closed
// enumerations defined in this package.
var ErrInvalidEnum = errors.New("invalid enumeration value")

type enumValue interface {
	~string
	Valid() bool
}

func parseEnum[T enumValue](kind, raw string) (T, error) {
	v := T(raw)
	if !v.Valid() {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrInvalidEnum, kind, raw)
	}
	return v, nil
}

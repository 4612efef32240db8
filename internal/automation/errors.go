package automation

import "errors"

var (
	// ErrNotFound is returned when a script or trigger name was never
	// registered.
	ErrNotFound = errors.New("definition not found")

	// ErrDuplicateField is returned when a definition declares two
	// fields with the same name.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrInvalidField is returned when a field declaration is not
	// usable at all (empty name).
	ErrInvalidField = errors.New("invalid field")
)

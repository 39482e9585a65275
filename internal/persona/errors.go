package persona

import "errors"

var (
	// ErrNotFound is returned when a persona id does not exist.
	ErrNotFound = errors.New("persona: not found")

	// ErrInvalidPersona is returned when an import row has no usable content.
	ErrInvalidPersona = errors.New("persona: summary tag or name is required")
)

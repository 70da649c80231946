package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown waveform, unit or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIndexInProgress indicates an indexing run is already active.
	ErrIndexInProgress = errors.New("index in progress")

	// Decoding Errors.

	// ErrMalformedValue indicates a primitive XML value could not be parsed.
	ErrMalformedValue = errors.New("malformed value")

	// ErrMissingRequiredField indicates a structural element is absent where
	// extraction of that subtree cannot proceed.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrSchemaViolation indicates the document was rejected before extraction.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrNoWaveforms indicates a document without any RHYTHM or DERIVED waveform.
	ErrNoWaveforms = errors.New("no waveforms found")

	// ErrUnknownUnit indicates a unit that cannot be converted.
	ErrUnknownUnit = errors.New("unknown unit")
)

// ValueError reports a primitive value that failed to parse.
// It matches ErrMalformedValue with errors.Is.
type ValueError struct {
	// Expected names the type the parser wanted (e.g. "HL7 timestamp").
	Expected string

	// Raw is the offending text.
	Raw string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %q", ErrMalformedValue, e.Expected, e.Raw)
}

// Unwrap returns ErrMalformedValue.
func (e *ValueError) Unwrap() error {
	return ErrMalformedValue
}

// NewValueError creates a ValueError.
func NewValueError(expected, raw string) *ValueError {
	return &ValueError{Expected: expected, Raw: raw}
}

package project

import "errors"

// Sentinel errors for project loading and validation.
var (
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported project file format")
	// ErrMissingField indicates a required field (e.g. id, from) is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrDuplicateID indicates two tasks or two resources share an ID.
	ErrDuplicateID = errors.New("duplicate ID")
	// ErrUnknownRef indicates a dependency or allocation names an undeclared
	// task or resource.
	ErrUnknownRef = errors.New("unknown reference")
	// ErrBadValue indicates a field holds a value outside its domain.
	ErrBadValue = errors.New("bad value")
	// ErrInvalid is returned by Check when validation found problems.
	ErrInvalid = errors.New("invalid project")
)

// ValidationCategory classifies a validation error for programmatic handling.
type ValidationCategory string

const (
	// ValCatMissingField indicates a required field is empty.
	ValCatMissingField ValidationCategory = "missing_field"
	// ValCatDuplicateID indicates two entries share the same ID.
	ValCatDuplicateID ValidationCategory = "duplicate_id"
	// ValCatUnknownRef indicates a reference to an undeclared task or resource.
	ValCatUnknownRef ValidationCategory = "unknown_ref"
	// ValCatBadValue indicates a malformed or out-of-range value.
	ValCatBadValue ValidationCategory = "bad_value"
)

// ValidationError records a validation problem with source context.
type ValidationError struct {
	Category   ValidationCategory `json:"category"`
	Subject    string             `json:"subject,omitempty"` // e.g. `task "a"`
	SourceFile string             `json:"source_file"`
	Field      string             `json:"field,omitempty"`
	Err        error              `json:"-"`
}

// Error returns a human-readable string including source file and subject.
func (e *ValidationError) Error() string {
	if e.Subject != "" {
		return e.SourceFile + ": " + e.Subject + ": " + e.Err.Error()
	}
	return e.SourceFile + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

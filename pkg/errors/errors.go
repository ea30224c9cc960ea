// Package errors provides custom error types for the channelmap system.
// These errors enable programmatic error checking across the reconciliation
// pipeline and keep failure reporting consistent between the library and
// the CLI.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the channelmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMetadataNotFound indicates that no antibodies metadata file was
	// found under the scanned directory tree
	ErrMetadataNotFound = errors.New("antibodies metadata file not found")

	// ErrMalformedLabel indicates a channel label that does not match the
	// cyc<N>_ch<M>_orig<name> pattern
	ErrMalformedLabel = errors.New("malformed channel label")

	// ErrMalformedChannelID indicates a channel_id value that does not
	// match the cycle<N>_ch<M> pattern
	ErrMalformedChannelID = errors.New("malformed channel id")

	// ErrDuplicateChannelID indicates two antibody rows sharing the same
	// channel_id after case folding
	ErrDuplicateChannelID = errors.New("duplicate channel id")

	// ErrMissingImageDelimiter indicates that the target OME-XML document
	// has no </Image> element to anchor the annotation block
	ErrMissingImageDelimiter = errors.New("missing </Image> delimiter")

	// ErrMissingColumn indicates that the antibodies table lacks one of
	// its required columns
	ErrMissingColumn = errors.New("missing required column")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Unwrap implements errors.Unwrap
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "tsv", "xml", "label", etc.
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "walk"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// LabelError represents a channel label that failed normalization
type LabelError struct {
	Label   string
	Message string
}

// Error implements the error interface
func (e *LabelError) Error() string {
	return fmt.Sprintf("channel label %q: %s", e.Label, e.Message)
}

// Is implements errors.Is support
func (e *LabelError) Is(target error) bool {
	return target == ErrMalformedLabel
}

// NewLabelError creates a new LabelError
func NewLabelError(label, message string) *LabelError {
	return &LabelError{Label: label, Message: message}
}

// ChannelIDError represents a channel_id value that failed to parse
type ChannelIDError struct {
	ChannelID string
	Row       int
	Message   string
}

// Error implements the error interface
func (e *ChannelIDError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("channel_id %q (row %d): %s", e.ChannelID, e.Row, e.Message)
	}
	return fmt.Sprintf("channel_id %q: %s", e.ChannelID, e.Message)
}

// Is implements errors.Is support
func (e *ChannelIDError) Is(target error) bool {
	return target == ErrMalformedChannelID
}

// NewChannelIDError creates a new ChannelIDError
func NewChannelIDError(channelID string, row int, message string) *ChannelIDError {
	return &ChannelIDError{ChannelID: channelID, Row: row, Message: message}
}

// DuplicateError represents antibody rows colliding on a channel_id key
type DuplicateError struct {
	ChannelID string
	Rows      []int
}

// Error implements the error interface
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate channel_id %q in rows %v", e.ChannelID, e.Rows)
}

// Is implements errors.Is support
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateChannelID
}

// NewDuplicateError creates a new DuplicateError
func NewDuplicateError(channelID string, rows []int) *DuplicateError {
	return &DuplicateError{ChannelID: channelID, Rows: rows}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMetadataNotFound checks if an error indicates a missing antibodies file
func IsMetadataNotFound(err error) bool {
	return errors.Is(err, ErrMetadataNotFound)
}

// IsMalformedLabel checks if an error is a malformed channel label error
func IsMalformedLabel(err error) bool {
	return errors.Is(err, ErrMalformedLabel)
}

// IsMalformedChannelID checks if an error is a malformed channel_id error
func IsMalformedChannelID(err error) bool {
	return errors.Is(err, ErrMalformedChannelID)
}

// IsDuplicateChannelID checks if an error reports colliding channel_id rows
func IsDuplicateChannelID(err error) bool {
	return errors.Is(err, ErrDuplicateChannelID)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

package diagnostictest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every *NotFoundError through errors.Is.
var ErrNotFound = errors.New("diagnostic test not found")

// NotFoundError reports that no record exists for ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("diagnostic test %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the underlying storage engine. The cause is
// meant for operators and must not be returned to API callers.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageFailure(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ErrorCode identifies the kind of a field-level validation failure.
type ErrorCode string

const (
	CodeRequiredFieldMissing ErrorCode = "required_field_missing"
	CodeInvalidDateFormat    ErrorCode = "invalid_date_format"
	CodeInvalidFieldType     ErrorCode = "invalid_field_type"
)

// FieldError is one validation failure on one input field.
type FieldError struct {
	Field   string    `json:"field"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is the ordered list of every failure found in a payload.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the names of the fields that failed, in order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, fe := range v {
		out[i] = fe.Field
	}
	return out
}

// Has reports whether field failed with code.
func (v ValidationErrors) Has(field string, code ErrorCode) bool {
	for _, fe := range v {
		if fe.Field == field && fe.Code == code {
			return true
		}
	}
	return false
}

func requiredFieldMissing(field, label string) FieldError {
	return FieldError{Field: field, Code: CodeRequiredFieldMissing, Message: label + " is required"}
}

func invalidDateFormat(field string) FieldError {
	return FieldError{Field: field, Code: CodeInvalidDateFormat, Message: "Invalid date format"}
}

func invalidFieldType(field string) FieldError {
	return FieldError{Field: field, Code: CodeInvalidFieldType, Message: "Expected a string"}
}

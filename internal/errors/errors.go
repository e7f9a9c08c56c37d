package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a spans error code.
type ErrorCode string

const (
	ErrInvalidInterval      ErrorCode = "INVALID_INTERVAL"      // 400
	ErrInvalidArgument      ErrorCode = "INVALID_ARGUMENT"      // 400
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrMissingOperand       ErrorCode = "MISSING_OPERAND"       // 400
	ErrUnexpectedOperand    ErrorCode = "UNEXPECTED_OPERAND"    // 400
	ErrUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION" // 400
	ErrAmbiguousAddressing  ErrorCode = "AMBIGUOUS_ADDRESSING"  // 400
	ErrUnknownTransform     ErrorCode = "UNKNOWN_TRANSFORM"     // 404
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrDuplicateName        ErrorCode = "DUPLICATE_NAME"        // 409
	ErrNameAlreadyExists    ErrorCode = "NAME_ALREADY_EXISTS"   // 409
	ErrCancelled            ErrorCode = "CANCELLED"             // 499
	ErrInternal             ErrorCode = "INTERNAL"              // 500
)

// SpansError represents a structured error with code, status, and details.
type SpansError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SpansError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidInterval creates a 400 error for an interval whose start is after its end.
func NewInvalidInterval(start, end int64) *SpansError {
	return &SpansError{
		Code:    ErrInvalidInterval,
		Status:  400,
		Message: fmt.Sprintf("interval start %d is after end %d", start, end),
		Details: map[string]any{"start": start, "end": end},
	}
}

// NewInvalidArgument creates a 400 error for malformed input shapes.
func NewInvalidArgument(msg string) *SpansError {
	return &SpansError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SpansError {
	return &SpansError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMissingOperand creates a 400 error when a binary operation has no second series.
func NewMissingOperand(operation string) *SpansError {
	return &SpansError{
		Code:    ErrMissingOperand,
		Status:  400,
		Message: fmt.Sprintf("operation %s requires a second series", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewUnexpectedOperand creates a 400 error when a unary operation was given a second series.
func NewUnexpectedOperand(operation string) *SpansError {
	return &SpansError{
		Code:    ErrUnexpectedOperand,
		Status:  400,
		Message: fmt.Sprintf("operation %s does not take a second series", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewUnsupportedOperation creates a 400 error for an unrecognized operation selector.
func NewUnsupportedOperation(operation string) *SpansError {
	return &SpansError{
		Code:    ErrUnsupportedOperation,
		Status:  400,
		Message: fmt.Sprintf("unsupported operation %q", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewAmbiguousAddressing creates a 400 error when both id and name are given.
func NewAmbiguousAddressing() *SpansError {
	return &SpansError{
		Code:    ErrAmbiguousAddressing,
		Status:  400,
		Message: "specify either id or name, not both",
	}
}

// NewUnknownTransform creates a 404 error for dispatch of an unregistered name.
func NewUnknownTransform(name string) *SpansError {
	return &SpansError{
		Code:    ErrUnknownTransform,
		Status:  404,
		Message: fmt.Sprintf("no transform registered as %q", name),
		Details: map[string]any{"name": name},
	}
}

// NewNotFound creates a 404 error for when a series cannot be found.
func NewNotFound(identifier string) *SpansError {
	return &SpansError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("series not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *SpansError {
	return &SpansError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewDuplicateName creates a 409 error when a transform name is registered twice.
func NewDuplicateName(name string) *SpansError {
	return &SpansError{
		Code:    ErrDuplicateName,
		Status:  409,
		Message: fmt.Sprintf("name %q is already registered", name),
		Details: map[string]any{"name": name},
	}
}

// NewNameAlreadyExists creates a 409 error for stored series name collisions.
func NewNameAlreadyExists(workspace, name string) *SpansError {
	return &SpansError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("series with name %q already exists in workspace %q", name, workspace),
		Details: map[string]any{"workspace": workspace, "name": name},
	}
}

// NewCancelled creates a 499 error when an operation is interrupted by its context.
func NewCancelled(op string) *SpansError {
	return &SpansError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The original error is kept in Details rather than in the message.
func NewInternal(err error) *SpansError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &SpansError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is (or wraps) a SpansError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SpansError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes aggregate failure semantics.
type ErrorCode string

const (
	// Caller-correctable kinds. Detected before any write.
	CodeInvalidQuantity ErrorCode = "invalid_quantity"
	CodeProductNotFound ErrorCode = "product_not_found"
	CodeCartNotFound    ErrorCode = "cart_not_found"
	CodeValidation      ErrorCode = "validation"

	// The atomic group did not commit; nothing was persisted.
	CodePersistenceFailure ErrorCode = "persistence_failure"

	// Internal classification used by the write loop before it gives up.
	CodeConflict  ErrorCode = "conflict"
	CodeRetryable ErrorCode = "retryable"
	CodeInternal  ErrorCode = "internal"
)

var (
	ErrInvalidQuantity    = &Error{Code: CodeInvalidQuantity}
	ErrProductNotFound    = &Error{Code: CodeProductNotFound}
	ErrCartNotFound       = &Error{Code: CodeCartNotFound}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure}
)

// Error is the canonical aggregate error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same code, so errors.Is(err, ErrCartNotFound)
// works regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// NewError builds an aggregate error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with aggregate error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether the outermost aggregate error carries code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the outermost aggregate error code when available.
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if !errors.As(err, &aggErr) {
		return ""
	}
	return aggErr.Code
}

// IsCallerError reports whether err is one of the caller-correctable kinds.
func IsCallerError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidQuantity, CodeProductNotFound, CodeCartNotFound, CodeValidation:
		return true
	default:
		return false
	}
}

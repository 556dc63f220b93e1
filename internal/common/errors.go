package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Fatal pipeline errors; these propagate to the caller.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptDocument   = errors.New("corrupt document")
)

// Recoverable pipeline errors; these degrade the result and are reported as warnings.
var (
	ErrRecognitionUnavailable = errors.New("recognition unavailable")
	ErrNoPlatformSignals      = errors.New("no platform signals")
	ErrFieldInvalid           = errors.New("field invalid")
	ErrAIServiceUnavailable   = errors.New("ai service unavailable")
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func UnsupportedFormat(detail string) *AppError {
	return NewAppError("UNSUPPORTED_FORMAT", detail, ErrUnsupportedFormat)
}

func CorruptDocument(detail string, cause error) *AppError {
	if cause == nil {
		return NewAppError("CORRUPT_DOCUMENT", detail, ErrCorruptDocument)
	}
	return NewAppError("CORRUPT_DOCUMENT", detail, fmt.Errorf("%w: %w", ErrCorruptDocument, cause))
}

// IsFatal reports whether err must abort a pipeline run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrCorruptDocument)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps a pipeline error onto a gRPC status.
func ToStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrInvalidInput):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrCorruptDocument):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return InternalError(err.Error())
	}
}

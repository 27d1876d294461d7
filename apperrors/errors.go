package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config_error"
	ErrorTypeGeneration ErrorType = "generation_error"
	ErrorTypeParse      ErrorType = "parse_error"
	ErrorTypeRead       ErrorType = "read_error"
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
)

// AppError is the error type returned across package boundaries
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError of the given type
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     cause,
		Code:    codeFor(errType),
	}
}

// NewConfigError reports a missing or unusable credential/configuration.
func NewConfigError(message string, cause error) *AppError {
	return New(ErrorTypeConfig, message, cause)
}

// NewGenerationError reports a backend response without a usable payload.
func NewGenerationError(message string, cause error) *AppError {
	return New(ErrorTypeGeneration, message, cause)
}

// NewParseError reports a backend payload that is not the expected shape.
func NewParseError(message string, cause error) *AppError {
	return New(ErrorTypeParse, message, cause)
}

// NewReadError reports a source asset that could not be read to completion.
func NewReadError(message string, cause error) *AppError {
	return New(ErrorTypeRead, message, cause)
}

func NewValidationError(message string, cause error) *AppError {
	return New(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return New(ErrorTypeNotFound, message, cause)
}

func NewConflictError(message string, cause error) *AppError {
	return New(ErrorTypeConflict, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

func IsConfigError(err error) bool     { return TypeOf(err) == ErrorTypeConfig }
func IsGenerationError(err error) bool { return TypeOf(err) == ErrorTypeGeneration }
func IsParseError(err error) bool      { return TypeOf(err) == ErrorTypeParse }
func IsReadError(err error) bool       { return TypeOf(err) == ErrorTypeRead }
func IsValidationError(err error) bool { return TypeOf(err) == ErrorTypeValidation }
func IsNotFoundError(err error) bool   { return TypeOf(err) == ErrorTypeNotFound }
func IsConflictError(err error) bool   { return TypeOf(err) == ErrorTypeConflict }

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeRead:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeConfig:
		return http.StatusServiceUnavailable
	case ErrorTypeGeneration, ErrorTypeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrap prefixes err with message, keeping the type of an existing AppError
func Wrap(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
			Code:    appErr.Code,
		}
	}

	return New(errType, message, err)
}

func codeFor(errType ErrorType) string {
	switch errType {
	case ErrorTypeConfig:
		return "CONFIG_ERROR"
	case ErrorTypeGeneration:
		return "GENERATION_ERROR"
	case ErrorTypeParse:
		return "PARSE_ERROR"
	case ErrorTypeRead:
		return "READ_ERROR"
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeConflict:
		return "CONFLICT"
	default:
		return "UNKNOWN_ERROR"
	}
}

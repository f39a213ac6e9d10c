// Package errors provides unified error handling across simplethink.
//
// SYSTEM ARCHITECTURE ROLE:
// Every interface (CLI, HTTP, TUI) reports failures as an AppError so a
// missing template looks the same whether it came from a flag, a route or
// a key press.
//
// KEY RESPONSIBILITIES:
// - Define error codes and categories for generation, storage and input failures
// - Provide the structured AppError type with severity and context
// - Let each interface format the same error its own way (handlers.go)
//
// INTEGRATION POINTS:
// - internal/service: maps storage and engine sentinels onto AppErrors
// - internal/commands: CommandExecutor converts AppErrors into ErrorInfo
// - internal/api: HTTPErrorHandler maps codes to status codes
// - internal/cli: CLIErrorHandler formats errors for the terminal
// - internal/validation: ValidationResult.ToAppError()
//
// USAGE PATTERNS:
// - Create errors with constructors like ValidationError(), NotFoundError()
// - Wrap causes with Wrap() or the operation-specific constructors
// - Use GetAppError() to recover the AppError from a wrapped chain
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField      ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat     ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"

	// Service errors
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceTimeout ErrorCode = "SERVICE_TIMEOUT"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Generation errors
	ErrCodePrecondition ErrorCode = "PRECONDITION_FAILED"
	ErrCodeExhausted    ErrorCode = "EXHAUSTED"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeFileCorrupted  ErrorCode = "FILE_CORRUPTED"

	// Command errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"
	ErrCodeInvalidCommand  ErrorCode = "INVALID_COMMAND"

	// Git errors
	ErrCodeGitFailure ErrorCode = "GIT_FAILURE"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryService    ErrorCategory = "service"
	CategoryGeneration ErrorCategory = "generation"
	CategoryStorage    ErrorCategory = "storage"
	CategoryCommand    ErrorCategory = "command"
	CategoryGit        ErrorCategory = "git"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat, ErrCodeInvalidExpression:
		return CategoryValidation, SeverityWarning

	case ErrCodeServiceTimeout:
		return CategoryService, SeverityError
	case ErrCodeInternalError:
		return CategoryService, SeverityCritical
	case ErrCodeNotImplemented:
		return CategoryService, SeverityInfo

	// a precondition failure is a caller bug, exhaustion is an empty pool
	case ErrCodePrecondition:
		return CategoryGeneration, SeverityError
	case ErrCodeExhausted:
		return CategoryGeneration, SeverityWarning

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeAlreadyExists, ErrCodeForbidden:
		return CategoryService, SeverityWarning

	case ErrCodeStorageFailure, ErrCodeFileCorrupted:
		return CategoryStorage, SeverityError

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeCommandFailed, ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	case ErrCodeGitFailure:
		return CategoryGit, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// isRetryable determines if an error is retryable based on its code
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeServiceTimeout, ErrCodeStorageFailure, ErrCodeGitFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error chain contains an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error chain, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// Common error constructors for frequently used errors
func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExistsError(resource string) *AppError {
	return NewAppError(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func PreconditionError(message string, err error) *AppError {
	return Wrap(err, ErrCodePrecondition, message)
}

func ExhaustedError(message string, err error) *AppError {
	return Wrap(err, ErrCodeExhausted, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func GitError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeGitFailure, fmt.Sprintf("Git operation failed: %s", operation))
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("Command '%s' not found", command))
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("Invalid command '%s': %s", command, reason))
}

// Package errors/handlers formats AppErrors for each interface.
//
// ERROR FLOW:
// 1. The service returns an AppError
// 2. The interface handler logs it
// 3. The handler formats it for the terminal, the TUI or an HTTP response
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
	logger  *zap.Logger
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool, logger *zap.Logger) *CLIErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIErrorHandler{
		Verbose: verbose,
		logger:  logger.Named("errors"),
	}
}

// HandleError logs the error when verbose and returns it formatted for display
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		h.logger.Info("command failed",
			zap.String("code", string(appErr.Code)),
			zap.String("severity", string(appErr.Severity)),
			zap.Error(appErr.Cause))
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.Verbose && appErr.Details != "" {
		message = fmt.Sprintf("%s (%s)", message, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", message)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", message)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", message)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", message)
	default:
		return fmt.Sprintf("❌ %s", message)
	}
}

// HTTPErrorHandler handles errors for HTTP interface
type HTTPErrorHandler struct {
	IncludeDetails bool
	logger         *zap.Logger
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool, logger *zap.Logger) *HTTPErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
		logger:         logger.Named("http-errors"),
	}
}

// HandleError logs the error
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	fields := []zap.Field{
		zap.String("code", string(appErr.Code)),
		zap.String("message", appErr.Message),
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if appErr.Severity == SeverityCritical || appErr.Severity == SeverityError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	return appErr
}

// ErrorBody is the error member of a JSON response
type ErrorBody struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Body builds the response error member
func (h *HTTPErrorHandler) Body(err error) ErrorBody {
	appErr := GetAppError(err)
	body := ErrorBody{Code: appErr.Code, Message: appErr.Message}
	if h.IncludeDetails {
		body.Details = appErr.Details
		body.Context = appErr.Context
	}
	return body
}

// FormatError formats an error for HTTP response
func (h *HTTPErrorHandler) FormatError(err error) string {
	jsonBytes, _ := json.Marshal(map[string]interface{}{"error": h.Body(err)})
	return string(jsonBytes)
}

// StatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) StatusCode(err error) int {
	switch GetAppError(err).Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField, ErrCodeInvalidFormat, ErrCodeInvalidExpression:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeCommandNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists:
		return http.StatusConflict
	case ErrCodeInvalidCommand:
		return http.StatusMethodNotAllowed
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodePrecondition, ErrCodeExhausted:
		return http.StatusUnprocessableEntity
	case ErrCodeServiceTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// TUIErrorHandler handles errors for TUI interface
type TUIErrorHandler struct {
	ShowDetails bool
	logger      *zap.Logger
}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler(showDetails bool, logger *zap.Logger) *TUIErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TUIErrorHandler{
		ShowDetails: showDetails,
		logger:      logger.Named("tui-errors"),
	}
}

// HandleError logs the error
func (h *TUIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)
	h.logger.Warn("tui error", zap.String("code", string(appErr.Code)), zap.Error(appErr.Cause))
	return appErr
}

// FormatError formats an error for TUI display
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.ShowDetails && appErr.Details != "" {
		message = fmt.Sprintf("%s\nDetails: %s", message, appErr.Details)
	}
	return message
}

// GetErrorStyle returns an icon and a color for the error's severity
func (h *TUIErrorHandler) GetErrorStyle(err error) (string, string) {
	switch GetAppError(err).Severity {
	case SeverityCritical:
		return "🔥", "#ff0000"
	case SeverityError:
		return "❌", "#ff6b6b"
	case SeverityWarning:
		return "⚠️", "#feca57"
	case SeverityInfo:
		return "ℹ️", "#48cae4"
	default:
		return "❌", "#ff6b6b"
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category ErrorCategory
		severity ErrorSeverity
	}{
		{ErrCodeValidation, CategoryValidation, SeverityWarning},
		{ErrCodePrecondition, CategoryGeneration, SeverityError},
		{ErrCodeExhausted, CategoryGeneration, SeverityWarning},
		{ErrCodeNotFound, CategoryService, SeverityInfo},
		{ErrCodeStorageFailure, CategoryStorage, SeverityError},
		{ErrorCode("SOMETHING_ELSE"), CategorySystem, SeverityError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			e := NewAppError(tt.code, "x")
			assert.Equal(t, tt.category, e.Category)
			assert.Equal(t, tt.severity, e.Severity)
		})
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk gone")
	err := StorageError("save template", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsRetryable())
	assert.Equal(t, "disk gone", err.Details)
	assert.Equal(t, "STORAGE_FAILURE: Storage operation failed: save template (disk gone)", err.Error())

	wrapped := fmt.Errorf("outer: %w", NotFoundError("template x"))
	assert.True(t, IsAppError(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeNotFound))
	assert.Equal(t, "template x not found", GetAppError(wrapped).Message)

	plain := GetAppError(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternalError, plain.Code)
	assert.False(t, IsAppError(stderrors.New("boom")))
}

func TestHTTPStatusCodes(t *testing.T) {
	h := NewHTTPErrorHandler(true, nil)
	tests := map[error]int{
		ValidationError("bad"):                 http.StatusBadRequest,
		NotFoundError("x"):                     http.StatusNotFound,
		AlreadyExistsError("x"):                http.StatusConflict,
		InvalidCommandError("PUT /x", "no"):    http.StatusMethodNotAllowed,
		ForbiddenError("no"):                   http.StatusForbidden,
		PreconditionError("nil doc", nil):      http.StatusUnprocessableEntity,
		ExhaustedError("empty pool", nil):      http.StatusUnprocessableEntity,
		stderrors.New("unclassified"):          http.StatusInternalServerError,
		StorageError("x", stderrors.New("io")): http.StatusInternalServerError,
	}
	for err, want := range tests {
		assert.Equal(t, want, h.StatusCode(err), err.Error())
	}

	body := h.Body(ValidationError("bad").WithContext("field", "n"))
	assert.Equal(t, ErrCodeValidation, body.Code)
	assert.Equal(t, "n", body.Context["field"])
	assert.Contains(t, h.FormatError(ValidationError("bad")), `"code":"VALIDATION_ERROR"`)

	quiet := NewHTTPErrorHandler(false, nil)
	assert.Nil(t, quiet.Body(ValidationError("bad").WithContext("field", "n")).Context)
}

func TestCLIFormat(t *testing.T) {
	h := NewCLIErrorHandler(false, nil)
	assert.Equal(t, "⚠️  WARNING: bad", h.FormatError(ValidationError("bad")))
	assert.Equal(t, "ℹ️  INFO: template x not found", h.FormatError(NotFoundError("template x")))

	verbose := NewCLIErrorHandler(true, nil)
	err := verbose.HandleError(StorageError("save", stderrors.New("io")))
	require.Error(t, err)
	assert.Equal(t, "❌ ERROR: Storage operation failed: save (io)", err.Error())
}

func TestTUIFormat(t *testing.T) {
	h := NewTUIErrorHandler(true, nil)
	assert.Equal(t, "Storage operation failed: save\nDetails: io", h.FormatError(StorageError("save", stderrors.New("io"))))
	icon, color := h.GetErrorStyle(ValidationError("x"))
	assert.Equal(t, "⚠️", icon)
	assert.Equal(t, "#feca57", color)
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches on code so copies made by the With* helpers still match the original
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	cp := *e
	cp.Internal = err
	return &cp
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

var (
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized", "Authentication required")
	ErrInvalidToken = New(http.StatusUnauthorized, "invalid_token", "Invalid or expired token")

	ErrForbidden = New(http.StatusForbidden, "forbidden", "Access denied")

	ErrNotFound = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrConflict = New(http.StatusConflict, "conflict", "Resource already exists")

	ErrBadRequest      = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation      = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")
	ErrInvalidState    = New(http.StatusConflict, "invalid_state", "Operation not allowed in the current state")
	ErrFeatureDisabled = New(http.StatusServiceUnavailable, "feature_disabled", "Feature is not configured")
	ErrInternal        = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, "payload_too_large", "Uploaded file is too large")
)

func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

func NewValidation(message string) *Error {
	return ErrValidation.WithMessage(message)
}

// NewNotFound creates a not found error for a resource type and ID
func NewNotFound(resourceType string, id any) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%v' not found", resourceType, id))
}

func NewInvalidState(message string) *Error {
	return ErrInvalidState.WithMessage(message)
}

// ToHTTPError converts an error to a status and JSON body
func ToHTTPError(err error) (int, gin.H) {
	var appErr *Error
	if errors.As(err, &appErr) {
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		return appErr.HTTPStatus, gin.H{"error": body}
	}

	return http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    ErrInternal.Code,
			"message": ErrInternal.Message,
		},
	}
}

// Respond renders err and aborts the gin context
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := ToHTTPError(err)
	c.AbortWithStatusJSON(status, body)
}

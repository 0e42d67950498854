package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents standardized error codes
type ErrorCode string

// Standard error codes for the application
const (
	// Authentication errors
	ErrorCodeInvalidCredentials ErrorCode = "AUTH_001"
	ErrorCodeInvalidToken       ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken       ErrorCode = "AUTH_006"
	ErrorCodeUnauthorized       ErrorCode = "AUTH_008"

	// Resource errors
	ErrorCodeResourceNotFound      ErrorCode = "RES_001"
	ErrorCodeResourceAlreadyExists ErrorCode = "RES_002"
	ErrorCodeConflict              ErrorCode = "RES_004"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodePayloadTooLarge  ErrorCode = "VAL_002"
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"

	// Server errors
	ErrorCodeInternalServer     ErrorCode = "SRV_001"
	ErrorCodeServiceUnavailable ErrorCode = "SRV_003"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool        `json:"success" example:"false"`
	Error     string      `json:"error" example:"Topic not found"`
	Code      ErrorCode   `json:"code" example:"RES_001"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// WithDetails adds additional details to the error
func (e *ErrorResponse) WithDetails(details interface{}) *ErrorResponse {
	e.Details = details
	return e
}

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field" example:"email"`
	Message string `json:"message" example:"email must be a valid email address"`
}

// HandleValidationError converts a request binding error into an error response
func HandleValidationError(err error) *ErrorResponse {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(fe),
				Message: formatValidationError(fe),
			})
		}
		return NewErrorResponse(ErrorCodeValidationFailed, fields[0].Message).WithDetails(fields)
	}

	return NewErrorResponse(ErrorCodeValidationFailed, "Invalid request format").WithDetails(err.Error())
}

func jsonFieldName(fe validator.FieldError) string {
	return toSnake(fe.Field())
}

// toSnake turns a Go field name such as OriginalFilename into original_filename
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	field := jsonFieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "email":
		return field + " must be a valid email address"
	default:
		return field + " validation failed: " + fe.Tag()
	}
}

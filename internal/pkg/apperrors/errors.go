package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("authentication required")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
	ErrWeakPassword     = errors.New("password is too short")
	ErrEmptyName        = errors.New("name is required")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Topic errors
var (
	ErrTopicNotFound = errors.New("topic not found")
)

// Note and file errors
var (
	ErrNoteNotFound       = errors.New("note not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
)

// Meta document errors
var (
	ErrMetaDocumentNotFound = errors.New("meta document not found")
	ErrMetaDocumentNotReady = errors.New("meta document is not ready for download")
	ErrNoFiles              = errors.New("no files with extractable text found for this topic")
	ErrProcessingInProgress = errors.New("a meta document is already being processed for this topic")
	ErrInvalidTransition    = errors.New("invalid processing status transition")
	ErrPipelineUnavailable  = errors.New("processing queue is unavailable")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// NewValidationError wraps ErrValidationFailed with a message that is shown to the client
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// MessageOf returns the client-facing message carried by err, or fallback
// when err does not contain a CustomError.
func MessageOf(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return fallback
}

// DetailsOf returns the details attached to a CustomError in the chain, if any.
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}

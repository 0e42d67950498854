package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/logger"
)

type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// errorMappings is checked in order, so more specific errors come first
var errorMappings = []errorMapping{
	// Validation
	{apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodePayloadTooLarge, "File is too large"},
	{apperrors.ErrWeakPassword, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Password is too short"},
	{apperrors.ErrEmptyName, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Name is required"},
	{apperrors.ErrFileTypeNotAllowed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "File type is not allowed"},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrNoFiles, http.StatusBadRequest, dto.ErrorCodeBadRequest, "No files with extractable text found for this topic"},
	{apperrors.ErrMetaDocumentNotReady, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Meta document is not ready for download"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},

	// Authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid email or password"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token has expired"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token has been revoked"},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token format"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},

	// Resources
	{apperrors.ErrTopicNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Topic not found"},
	{apperrors.ErrNoteNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Note not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrFileNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "File not found"},
	{apperrors.ErrMetaDocumentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Meta document not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already registered"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrProcessingInProgress, http.StatusConflict, dto.ErrorCodeConflict, "A meta document is already being processed for this topic"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},

	// Server
	{apperrors.ErrPipelineUnavailable, http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable, "Processing queue is unavailable, try again later"},
}

// ErrorResponseFor maps err to its HTTP status and response body
func ErrorResponseFor(err error) (int, *dto.ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp := dto.NewErrorResponse(m.code, apperrors.MessageOf(err, m.message))
			if details := apperrors.DetailsOf(err); details != nil {
				resp = resp.WithDetails(details)
			}
			return m.status, resp
		}
	}
	return http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrorCodeInternalServer, "Internal server error")
}

// HandleAPIError writes the response for err and aborts the request.
// Unmapped errors are logged and hidden behind a 500.
func HandleAPIError(c *gin.Context, err error) {
	status, resp := ErrorResponseFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

package util

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/inkwell/internal/errors"
	"github.com/zfogg/inkwell/internal/logger"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/storage"
	"github.com/zfogg/inkwell/internal/vote"
	"go.uber.org/zap"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// APIErrorFrom translates domain errors into API errors. Anything it does not
// recognise is an internal error and its message is not exposed.
func APIErrorFrom(err error, resource string) *errors.APIError {
	var apiErr *errors.APIError
	switch {
	case stderrors.As(err, &apiErr):
		return apiErr
	case vote.IsInteractionFailure(err):
		return errors.InteractionFailed(err.Error())
	case stderrors.Is(err, vote.ErrEntityNotFound),
		stderrors.Is(err, repository.ErrNotFound),
		stderrors.Is(err, repository.ErrUserNotFound):
		return errors.NotFound(resource)
	case stderrors.Is(err, vote.ErrInvalidKind),
		stderrors.Is(err, vote.ErrInvalidInput),
		stderrors.Is(err, repository.ErrInvalidInput):
		return errors.BadRequest(err.Error())
	case stderrors.Is(err, storage.ErrUnsupportedImage):
		return errors.ValidationError("file", err.Error())
	default:
		return errors.InternalError("internal server error")
	}
}

// RespondWithError maps err and writes the response
func RespondWithError(c *gin.Context, err error, resource string) {
	apiErr := APIErrorFrom(err, resource)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
	RespondWithAPIError(c, apiErr)
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "bad request"
	}
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondForbidden sends a 403 Forbidden response
func RespondForbidden(c *gin.Context, message ...string) {
	msg := "forbidden"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

// RespondValidationError sends a 422 Unprocessable Entity response
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

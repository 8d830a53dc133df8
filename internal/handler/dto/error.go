package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mrsawy/task-management/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message, plus per-field messages for
// validation failures.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewValidationErrorResponse creates a 422 body carrying every violated field.
func NewValidationErrorResponse(ve *domain.ValidationError) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: ve.Error(),
			Fields:  ve.Fields,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, body ErrorResponse) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, NewValidationErrorResponse(ve)
	}

	message := err.Error()

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, NewErrorResponse("TASK_NOT_FOUND", message)
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, NewErrorResponse("USER_NOT_FOUND", message)
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, NewErrorResponse("INSUFFICIENT_ACCESS", message)
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, NewErrorResponse("INVALID_TOKEN", message)
	case errors.Is(err, domain.ErrSubscriptionRejected):
		return http.StatusForbidden, NewErrorResponse("SUBSCRIPTION_REJECTED", message)
	default:
		// CRITICAL: Log unmapped error for debugging
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, NewErrorResponse("INTERNAL_ERROR", "Internal server error")
	}
}

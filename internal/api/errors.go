package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/soluna-labs/mirage-api/internal/api/shared"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/service"
	"github.com/soluna-labs/mirage-api/internal/service/auth"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrDigitalHumanNotFound),
		errors.Is(err, store.ErrSpeechTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrActiveTaskExists),
		errors.Is(err, service.ErrIdentityClaimed),
		errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict

	// Stage precondition errors
	case errors.Is(err, service.ErrCoverNotReady),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrNoVideoAvailable),
		errors.Is(err, service.ErrLyricsNotReady),
		errors.Is(err, service.ErrMusicNotReady):
		return http.StatusPreconditionFailed

	// Quota rejections
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusTooManyRequests

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidVideoKey),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrConversationNotFound):
		return "Conversation not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrDigitalHumanNotFound):
		return "Digital human not found"

	// Conflict errors
	case errors.Is(err, service.ErrActiveTaskExists):
		return "An active task already exists"

	case errors.Is(err, service.ErrIdentityClaimed):
		return "username is repeated"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	// Stage precondition errors keep their domain wording
	case errors.Is(err, service.ErrCoverNotReady):
		return "cover img not found"

	case errors.Is(err, service.ErrProfileNotFound):
		return "Profile not found"

	case errors.Is(err, service.ErrNoVideoAvailable):
		return "no video available"

	case errors.Is(err, service.ErrLyricsNotReady):
		return "Lyrics are not ready"

	case errors.Is(err, service.ErrMusicNotReady):
		return "Music is not ready"

	// Quota rejections
	case errors.Is(err, service.ErrQuotaExceeded):
		return "Generation quota exceeded"

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidVideoKey):
		return "Invalid video key"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID format"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes an error response using the standard status and
// message mapping. When defaultMsg is non-empty it overrides the mapped
// message for unexpected errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if defaultMsg != "" && status == http.StatusInternalServerError {
		message = defaultMsg
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'LoginRequest.Email' Error:Field validation for
	// 'Email' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid URL"
	default:
		return "validation failed"
	}
}

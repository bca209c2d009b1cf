package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/service"
	"github.com/soluna-labs/mirage-api/internal/service/auth"
	"github.com/soluna-labs/mirage-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"task not found", service.ErrTaskNotFound, http.StatusNotFound},
		{"conversation not found", service.ErrConversationNotFound, http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"digital human not found", store.ErrDigitalHumanNotFound, http.StatusNotFound},
		{"active task exists", service.ErrActiveTaskExists, http.StatusConflict},
		{"identity claimed", service.ErrIdentityClaimed, http.StatusConflict},
		{"email exists", store.ErrEmailExists, http.StatusConflict},
		{"cover not ready", service.ErrCoverNotReady, http.StatusPreconditionFailed},
		{"profile not found", service.ErrProfileNotFound, http.StatusPreconditionFailed},
		{"no video available", service.ErrNoVideoAvailable, http.StatusPreconditionFailed},
		{"lyrics not ready", service.ErrLyricsNotReady, http.StatusPreconditionFailed},
		{"music not ready", service.ErrMusicNotReady, http.StatusPreconditionFailed},
		{"quota exceeded", service.ErrQuotaExceeded, http.StatusTooManyRequests},
		{"invalid video key", domain.ErrInvalidVideoKey, http.StatusBadRequest},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"invalid ID", domain.ErrInvalidID, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestMapErrorToStatusCode_WrappedErrors(t *testing.T) {
	t.Parallel()

	// The mapping uses errors.Is, so wrapped sentinels map the same way.
	wrapped := fmt.Errorf("request_video: %w", service.ErrQuotaExceeded)
	assert.Equal(t, http.StatusTooManyRequests, MapErrorToStatusCode(wrapped))

	deep := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", service.ErrCoverNotReady))
	assert.Equal(t, http.StatusPreconditionFailed, MapErrorToStatusCode(deep))
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"cover not ready wording", service.ErrCoverNotReady, "cover img not found"},
		{"no video wording", service.ErrNoVideoAvailable, "no video available"},
		{"identity claimed wording", service.ErrIdentityClaimed, "username is repeated"},
		{"quota", service.ErrQuotaExceeded, "Generation quota exceeded"},
		{"conversation not found", service.ErrConversationNotFound, "Conversation not found"},
		{"internal details hidden", errors.New("pq: connection refused"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	err := errors.New(
		"Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag")
	assert.Equal(t, "Invalid Email: required field", SanitizeValidationError(err))

	err = errors.New(
		"Key: 'CoverStageRequest.ProfileURL' Error:Field validation for 'ProfileURL' failed on the 'url' tag")
	assert.Equal(t, "Invalid ProfileURL: invalid URL", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}

package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Service methods return sentinel errors for expected conditions; unexpected
// errors are wrapped in service-specific error types. The API layer maps
// these to HTTP status codes with errors.Is.
var (
	// ErrActiveTaskExists indicates the tenant already has an active
	// generation task. Maps to HTTP 409 Conflict.
	ErrActiveTaskExists = errors.New("tenant already has an active task")

	// ErrTaskNotFound indicates the requested generation task does not
	// exist. Maps to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrConversationNotFound indicates the requested chat conversation does
	// not exist or belongs to another tenant. Maps to HTTP 404 Not Found.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrQuotaExceeded indicates the resource usage limiter rejected the
	// attempt. Maps to HTTP 429 Too Many Requests.
	ErrQuotaExceeded = errors.New("resource quota exceeded")

	// ErrCoverNotReady indicates a stage was requested before the cover
	// stage finished. Maps to HTTP 412 Precondition Failed.
	ErrCoverNotReady = errors.New("cover img not found")

	// ErrProfileNotFound indicates the originating profile handle could not
	// be resolved. Maps to HTTP 412 Precondition Failed.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrIdentityClaimed indicates the publish identity is already owned by
	// a different task. Maps to HTTP 409 Conflict.
	ErrIdentityClaimed = errors.New("username is repeated")

	// ErrNoVideoAvailable indicates the task has no finished video to
	// publish. Maps to HTTP 412 Precondition Failed.
	ErrNoVideoAvailable = errors.New("no video available")

	// ErrLyricsNotReady indicates publishing requires finished lyrics but
	// the lyrics stage has no output. Maps to HTTP 412 Precondition Failed.
	ErrLyricsNotReady = errors.New("lyrics not ready")

	// ErrMusicNotReady indicates publishing requires a finished music track
	// but the music stage has no output. Maps to HTTP 412 Precondition Failed.
	ErrMusicNotReady = errors.New("music not ready")
)

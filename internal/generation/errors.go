package generation

import "errors"

// Common errors returned by provider implementations
var (
	// ErrGenerationFailed is returned when a generation call fails for any general reason
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmptyResult is returned when a provider reports success but produced no usable artifact
	ErrEmptyResult = errors.New("provider returned no usable artifact")

	// ErrInvalidResponse is returned when a provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when a provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient provider error")

	// ErrInvalidConfig is returned when a provider client configuration is invalid
	ErrInvalidConfig = errors.New("invalid provider configuration")

	// ErrProfileNotFound is returned when the profile lookup cannot resolve a handle
	ErrProfileNotFound = errors.New("profile not found")
)

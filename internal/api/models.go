package api

import (
	"github.com/google/uuid"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh
// endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// BasicInfoRequest defines the payload for the task basic-info endpoint.
// All fields are optional; empty fields leave the stored value unchanged.
type BasicInfoRequest struct {
	Gender        string `json:"gender,omitempty"          validate:"omitempty,oneof=male female other"`
	Lang          string `json:"lang,omitempty"            validate:"omitempty,max=16"`
	VoiceCloneURL string `json:"voice_clone_url,omitempty" validate:"omitempty,url"`
	Slogan        string `json:"slogan,omitempty"          validate:"omitempty,max=200"`
}

// CoverStageRequest defines the payload for the cover stage endpoint.
type CoverStageRequest struct {
	ProfileURL string `json:"profile_url"         validate:"required"`
	ImageURL   string `json:"image_url,omitempty" validate:"omitempty,url"`
	StyleID    int    `json:"style_id"            validate:"gte=0"`
}

// VideoStageRequest defines the payload for the video stage endpoint.
type VideoStageRequest struct {
	Key string `json:"key" validate:"required"`
}

// LyricsStageRequest defines the payload for the lyrics stage endpoint.
type LyricsStageRequest struct {
	Lang string `json:"lang,omitempty" validate:"omitempty,max=16"`
}

// MusicStageRequest defines the payload for the music stage endpoint.
type MusicStageRequest struct {
	Lyrics            string  `json:"lyrics"                        validate:"required"`
	Style             string  `json:"style,omitempty"`
	Voice             string  `json:"voice,omitempty"`
	Model             string  `json:"model,omitempty"`
	ResponseFormat    string  `json:"response_format,omitempty"`
	Speed             float64 `json:"speed,omitempty"               validate:"omitempty,gt=0,lte=4"`
	ReferenceAudioURL string  `json:"reference_audio_url,omitempty" validate:"omitempty,url"`
}

// AudioStageRequest defines the payload for the derivative speech stage
// endpoint.
type AudioStageRequest struct {
	PostURLs []string `json:"post_urls" validate:"required,min=1,max=20,dive,url"`
}

// ConversationRequest defines the payload for the conversation creation
// endpoint.
type ConversationRequest struct {
	Title string `json:"title,omitempty" validate:"omitempty,max=200"`
}

// ChatMessageRequest defines the payload for the chat message endpoint.
type ChatMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// PublishTaskRequest defines the payload for the publish endpoint.
type PublishTaskRequest struct {
	Description  string   `json:"description,omitempty"   validate:"omitempty,max=1000"`
	Region       string   `json:"region,omitempty"        validate:"omitempty,max=8"`
	Voice        string   `json:"voice,omitempty"`
	ExtraHandles []string `json:"extra_handles,omitempty" validate:"omitempty,max=50"`
}

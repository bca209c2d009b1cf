package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for DigitalHuman
var (
	ErrEmptyDigitalHumanID   = errors.New("digital human ID cannot be empty")
	ErrEmptyDigitalHumanName = errors.New("digital human name cannot be empty")
)

// DigitalVideo is one published video reference.
type DigitalVideo struct {
	Key     VideoKey `json:"key"`
	ViewURL string   `json:"view_url"`
}

// SongBundle carries the published lyrics and music references.
type SongBundle struct {
	Lyrics         string  `json:"lyrics,omitempty"`
	LyricsTitle    string  `json:"lyrics_title,omitempty"`
	MusicAudioURL  string  `json:"music_audio_url,omitempty"`
	MusicStyle     string  `json:"music_style,omitempty"`
	MusicModel     string  `json:"music_model,omitempty"`
	MusicVoice     string  `json:"music_voice,omitempty"`
	MusicFormat    string  `json:"music_response_format,omitempty"`
	MusicSpeed     float64 `json:"music_speed,omitempty"`
}

// DigitalHuman is the publish-time result aggregate. It is keyed by Name
// (the normalized profile handle): republishing the same identity replaces
// the record, reusing its ID and original CreatedAt.
type DigitalHuman struct {
	ID           uuid.UUID `json:"id"`
	FromTaskID   uuid.UUID `json:"from_task_id"`
	FromTenantID uuid.UUID `json:"from_tenant_id"`

	// Name is the identity key derived from the originating profile handle.
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Region      string `json:"region,omitempty"`

	CoverImageURL      string `json:"cover_img_url"`
	FirstFrameImageURL string `json:"first_frame_img_url,omitempty"`
	DanceImageURL      string `json:"dance_img_url,omitempty"`
	SingImageURL       string `json:"sing_img_url,omitempty"`
	FigureImageURL     string `json:"figure_img_url,omitempty"`

	Videos []DigitalVideo `json:"videos"`
	Songs  *SongBundle    `json:"songs,omitempty"`
	Audios []SpeechClip   `json:"audios,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the DigitalHuman has valid identity data.
func (d *DigitalHuman) Validate() error {
	if d.ID == uuid.Nil {
		return ErrEmptyDigitalHumanID
	}
	if d.Name == "" {
		return ErrEmptyDigitalHumanName
	}
	return nil
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for AIGCTask
var (
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyTenantID   = errors.New("tenant ID cannot be empty")
	ErrInvalidVideoKey = errors.New("invalid video key")
)

// VideoKey identifies which video variant a Video sub-task represents.
// At most one Video exists per key within a task.
type VideoKey string

// Known video variants
const (
	VideoKeyTurn    VideoKey = "turn"
	VideoKeyDance   VideoKey = "dance"
	VideoKeySing    VideoKey = "sing"
	VideoKeyFigure  VideoKey = "figure"
	VideoKeySpeech  VideoKey = "speech"
	VideoKeyThink   VideoKey = "think"
	VideoKeyDefault VideoKey = "default"
	VideoKeyAngry   VideoKey = "angry"
	VideoKeyGogo    VideoKey = "gogo"
	VideoKeySaying  VideoKey = "saying"
)

// IsValid reports whether the key is a known video variant.
func (k VideoKey) IsValid() bool {
	switch k {
	case VideoKeyTurn, VideoKeyDance, VideoKeySing, VideoKeyFigure,
		VideoKeySpeech, VideoKeyThink, VideoKeyDefault, VideoKeyAngry,
		VideoKeyGogo, VideoKeySaying:
		return true
	default:
		return false
	}
}

// CoverRequest is the input payload of the cover stage. The profile URL is
// the identity-bearing handle the published digital human is keyed by.
type CoverRequest struct {
	ProfileURL string `json:"profile_url"`
	ImageURL   string `json:"image_url,omitempty"`
	StyleID    int    `json:"style_id"`
}

// CoverResult holds the artifact URLs produced by the cover fan-out.
// All four variants are required; a partial set never reaches this struct.
type CoverResult struct {
	CoverImageURL      string `json:"cover_img_url"`
	FirstFrameImageURL string `json:"first_frame_img_url"`
	DanceImageURL      string `json:"dance_first_frame_img_url"`
	SingImageURL       string `json:"sing_first_frame_img_url"`
	FigureImageURL     string `json:"figure_first_frame_img_url"`
}

// Cover is the cover-stage sub-task.
type Cover struct {
	SubTask
	Input  *CoverRequest `json:"input"`
	Output *CoverResult  `json:"output,omitempty"`
}

// Regenerate resets the cover for a new attempt, archiving the current
// snapshot when it completed successfully.
func (c *Cover) Regenerate() error {
	snapshot := *c
	snapshot.History = nil
	return c.regenerate(snapshot)
}

// VideoRequest is the input payload of a video stage.
type VideoRequest struct {
	Key VideoKey `json:"key"`
}

// VideoResult holds the artifact produced by a video generation call.
type VideoResult struct {
	ViewURL string `json:"view_url"`
}

// Video is a keyed video-variant sub-task.
type Video struct {
	SubTask
	Input  *VideoRequest `json:"input"`
	Output *VideoResult  `json:"output,omitempty"`
}

// Regenerate resets the video for a new attempt, archiving the current
// snapshot when it completed successfully.
func (v *Video) Regenerate() error {
	snapshot := *v
	snapshot.History = nil
	return v.regenerate(snapshot)
}

// LyricsRequest is the input payload of the lyrics stage.
type LyricsRequest struct {
	Lang string `json:"lang,omitempty"`
}

// LyricsResult holds generated song lyrics and their title.
type LyricsResult struct {
	Lyrics string `json:"lyrics"`
	Title  string `json:"title"`
}

// Lyrics is the lyrics-stage sub-task.
type Lyrics struct {
	SubTask
	Input  *LyricsRequest `json:"input"`
	Output *LyricsResult  `json:"output,omitempty"`
}

// Regenerate resets the lyrics for a new attempt, archiving the current
// snapshot when it completed successfully.
func (l *Lyrics) Regenerate() error {
	snapshot := *l
	snapshot.History = nil
	return l.regenerate(snapshot)
}

// MusicRequest is the input payload of the music stage. Callers supply the
// lyric text directly; the music stage has no hard precondition on the
// lyrics stage.
type MusicRequest struct {
	Lyrics            string  `json:"lyrics"`
	Style             string  `json:"style,omitempty"`
	Voice             string  `json:"voice,omitempty"`
	Model             string  `json:"model,omitempty"`
	ResponseFormat    string  `json:"response_format,omitempty"`
	Speed             float64 `json:"speed,omitempty"`
	ReferenceAudioURL string  `json:"reference_audio_url,omitempty"`
}

// MusicResult holds the generated music track and the settings it was
// rendered with.
type MusicResult struct {
	AudioURL       string  `json:"audio_url"`
	Style          string  `json:"style,omitempty"`
	Model          string  `json:"model,omitempty"`
	Voice          string  `json:"voice,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Music is the music-stage sub-task.
type Music struct {
	SubTask
	Input  *MusicRequest `json:"input"`
	Output *MusicResult  `json:"output,omitempty"`
}

// Regenerate resets the music for a new attempt, archiving the current
// snapshot when it completed successfully.
func (m *Music) Regenerate() error {
	snapshot := *m
	snapshot.History = nil
	return m.regenerate(snapshot)
}

// AudioRequest is the input payload of the derivative speech stage: one
// voice-cloned clip is synthesized per post URL.
type AudioRequest struct {
	PostURLs []string `json:"post_urls"`
}

// SpeechClip is one synthesized audio artifact.
type SpeechClip struct {
	AudioURL string `json:"audio_url"`
	PostURL  string `json:"post_url,omitempty"`
	PostID   string `json:"post_id,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Audio is the derivative speech sub-task.
type Audio struct {
	SubTask
	Input  *AudioRequest `json:"input"`
	Output []SpeechClip  `json:"output,omitempty"`
}

// Regenerate resets the audio for a new attempt, archiving the current
// snapshot when it completed successfully.
func (a *Audio) Regenerate() error {
	snapshot := *a
	snapshot.History = nil
	return a.regenerate(snapshot)
}

// AIGCTask is the per-tenant aggregate holding one cover, many keyed videos,
// lyrics, music, and derivative audio sub-tasks, plus the profile identity
// the task was seeded from. The aggregate is persisted as a single document
// and mutated by every stage-entry call; Version increments on every save so
// persistence can be a compare-and-swap.
type AIGCTask struct {
	TaskID   uuid.UUID `json:"task_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Version  int64     `json:"version"`

	ProfileURL string `json:"profile_url,omitempty"`
	Username   string `json:"username,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`

	Gender            string `json:"gender,omitempty"`
	Lang              string `json:"lang,omitempty"`
	Slogan            string `json:"slogan,omitempty"`
	SloganDescription string `json:"slogan_description,omitempty"`
	SloganVoiceURL    string `json:"slogan_voice_url,omitempty"`
	VoiceCloneURL     string `json:"voice_clone_url,omitempty"`

	Cover  *Cover   `json:"cover,omitempty"`
	Videos []*Video `json:"videos,omitempty"`
	Lyrics *Lyrics  `json:"lyrics,omitempty"`
	Music  *Music   `json:"music,omitempty"`
	Audio  *Audio   `json:"audio,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAIGCTask creates a fresh task aggregate for the given tenant.
func NewAIGCTask(tenantID uuid.UUID) (*AIGCTask, error) {
	if tenantID == uuid.Nil {
		return nil, ErrEmptyTenantID
	}
	now := time.Now().UTC()
	return &AIGCTask{
		TaskID:    uuid.New(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks if the AIGCTask has valid identity data.
func (t *AIGCTask) Validate() error {
	if t.TaskID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.TenantID == uuid.Nil {
		return ErrEmptyTenantID
	}
	return nil
}

// VideoByKey returns the video sub-task with the given key, or nil when the
// task has no entry for that variant yet.
func (t *AIGCTask) VideoByKey(key VideoKey) *Video {
	for _, v := range t.Videos {
		if v.Input != nil && v.Input.Key == key {
			return v
		}
	}
	return nil
}

// CoverDone reports whether the cover stage finished with a usable result.
func (t *AIGCTask) CoverDone() bool {
	return t.Cover != nil && t.Cover.Status == SubTaskStatusDone && t.Cover.Output != nil
}

// Touch refreshes the aggregate's UpdatedAt timestamp.
func (t *AIGCTask) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

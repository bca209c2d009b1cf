package generation

import (
	"context"

	"github.com/soluna-labs/mirage-api/internal/domain"
)

// ImageGenerator produces a single image artifact from reference images and
// a prompt. The scenario tag identifies the variant being rendered (e.g.
// "first_frame", "dance", "sing", "figure") and is only used for logging and
// provider-side accounting.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, refImageURLs []string, prompt, scenario string) (string, error)
}

// VideoGenerator produces a short video artifact seeded by a first-frame
// image. It returns the URL of the rendered video.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, firstFrameURL, prompt string) (string, error)
}

// TextGenerator produces free-form text from a prompt. Used for slogans and
// other small text artifacts.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// LyricsGenerator produces song lyrics and a title from a profile handle's
// public content.
type LyricsGenerator interface {
	GenerateLyrics(ctx context.Context, profileURL, lang string) (*domain.LyricsResult, error)
}

// MusicGenerator renders a music track from lyric text and voice settings.
type MusicGenerator interface {
	GenerateMusic(ctx context.Context, req domain.MusicRequest) (*domain.MusicResult, error)
}

// SpeechSynthesizer produces voice-cloned speech clips.
type SpeechSynthesizer interface {
	// SynthesizeFromPost reads the post behind the URL aloud in the cloned voice.
	SynthesizeFromPost(ctx context.Context, postURL, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error)

	// SynthesizeText reads the given content aloud in the cloned voice.
	SynthesizeText(ctx context.Context, content, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error)
}

// ObjectStore persists a provider artifact to permanent storage and returns
// its durable URL.
type ObjectStore interface {
	Store(ctx context.Context, remoteURL string) (string, error)
}

// Profile is the subset of a social profile the pipeline needs.
type Profile struct {
	Handle       string
	AvatarURL    string
	Avatar400URL string
	Description  string
	Region       string
}

// ProfileLookup resolves a profile handle to its public profile data.
// Returns ErrProfileNotFound when the handle cannot be resolved.
type ProfileLookup interface {
	Lookup(ctx context.Context, handle string) (*Profile, error)
}

package mediagen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/soluna-labs/mirage-api/internal/config"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
)

const defaultTimeout = 300 * time.Second

// Client talks to the media provider gateway. It implements the image,
// video, music, and speech generation interfaces plus the object store.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure Client implements the generation interfaces
var (
	_ generation.ImageGenerator    = (*Client)(nil)
	_ generation.VideoGenerator    = (*Client)(nil)
	_ generation.MusicGenerator    = (*Client)(nil)
	_ generation.SpeechSynthesizer = (*Client)(nil)
	_ generation.ObjectStore       = (*Client)(nil)
)

// NewClient creates a media gateway client from the generation settings.
func NewClient(cfg config.GenerationConfig, logger *slog.Logger) (*Client, error) {
	if cfg.MediaBaseURL == "" {
		return nil, fmt.Errorf("%w: media base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.MediaAPIKey == "" {
		return nil, fmt.Errorf("%w: media API key cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		baseURL:    cfg.MediaBaseURL,
		apiKey:     cfg.MediaAPIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "mediagen_client")),
	}, nil
}

// GenerateImage implements generation.ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, refImageURLs []string, prompt, scenario string) (string, error) {
	req := struct {
		RefImageURLs []string `json:"ref_image_urls"`
		Prompt       string   `json:"prompt"`
		Scenario     string   `json:"scenario,omitempty"`
	}{refImageURLs, prompt, scenario}

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/images/generations", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("image generation: %w", generation.ErrEmptyResult)
	}
	return resp.URL, nil
}

// GenerateVideo implements generation.VideoGenerator.
func (c *Client) GenerateVideo(ctx context.Context, firstFrameURL, prompt string) (string, error) {
	req := struct {
		FirstFrameURL string `json:"first_frame_url"`
		Prompt        string `json:"prompt"`
	}{firstFrameURL, prompt}

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/videos/generations", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("video generation: %w", generation.ErrEmptyResult)
	}
	return resp.URL, nil
}

// GenerateMusic implements generation.MusicGenerator.
func (c *Client) GenerateMusic(ctx context.Context, req domain.MusicRequest) (*domain.MusicResult, error) {
	var resp struct {
		AudioURL string `json:"audio_url"`
	}
	if err := c.post(ctx, "/v1/music/generations", req, &resp); err != nil {
		return nil, err
	}
	if resp.AudioURL == "" {
		return nil, fmt.Errorf("music generation: %w", generation.ErrEmptyResult)
	}

	return &domain.MusicResult{
		AudioURL:       resp.AudioURL,
		Style:          req.Style,
		Model:          req.Model,
		Voice:          req.Voice,
		ResponseFormat: req.ResponseFormat,
		Speed:          req.Speed,
	}, nil
}

// SynthesizeFromPost implements generation.SpeechSynthesizer.
func (c *Client) SynthesizeFromPost(ctx context.Context, postURL, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error) {
	req := struct {
		PostURL       string `json:"post_url"`
		VoiceID       string `json:"voice_id,omitempty"`
		CloneAudioURL string `json:"clone_audio_url,omitempty"`
		Lang          string `json:"lang,omitempty"`
	}{postURL, voiceID, cloneAudioURL, lang}

	var clip domain.SpeechClip
	if err := c.post(ctx, "/v1/speech/from-post", req, &clip); err != nil {
		return nil, err
	}
	if clip.AudioURL == "" {
		return nil, fmt.Errorf("speech synthesis: %w", generation.ErrEmptyResult)
	}
	clip.PostURL = postURL
	return &clip, nil
}

// SynthesizeText implements generation.SpeechSynthesizer.
func (c *Client) SynthesizeText(ctx context.Context, content, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error) {
	req := struct {
		Content       string `json:"content"`
		VoiceID       string `json:"voice_id,omitempty"`
		CloneAudioURL string `json:"clone_audio_url,omitempty"`
		Lang          string `json:"lang,omitempty"`
	}{content, voiceID, cloneAudioURL, lang}

	var clip domain.SpeechClip
	if err := c.post(ctx, "/v1/speech/from-text", req, &clip); err != nil {
		return nil, err
	}
	if clip.AudioURL == "" {
		return nil, fmt.Errorf("speech synthesis: %w", generation.ErrEmptyResult)
	}
	clip.Content = content
	return &clip, nil
}

// Store implements generation.ObjectStore: the gateway copies the provider
// artifact behind remoteURL into permanent storage and returns the durable
// URL.
func (c *Client) Store(ctx context.Context, remoteURL string) (string, error) {
	req := struct {
		SourceURL string `json:"source_url"`
	}{remoteURL}

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/storage/objects", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("object store: %w", generation.ErrEmptyResult)
	}
	return resp.URL, nil
}

// post sends a JSON request to the gateway and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded excerpt of the body for the error message.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("media gateway call failed",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s returned %d: %s",
			generation.ErrGenerationFailed, path, resp.StatusCode, excerpt)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

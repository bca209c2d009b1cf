package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/soluna-labs/mirage-api/internal/config"
	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// Client implements the generation.TextGenerator and
// generation.LyricsGenerator interfaces using the Gemini API.
type Client struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

// Ensure Client implements the generation interfaces
var (
	_ generation.TextGenerator   = (*Client)(nil)
	_ generation.LyricsGenerator = (*Client)(nil)
)

// NewClient creates a new Gemini-backed text generation client.
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.GenerationConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Client{
		logger: logger.With(slog.String("component", "gemini_client")),
		client: client,
		model:  cfg.ModelName,
	}, nil
}

// GenerateText implements generation.TextGenerator.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", generation.ErrInvalidConfig)
	}

	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// lyricsSchema is the JSON shape the lyrics prompt asks the model for.
type lyricsSchema struct {
	Title  string `json:"title"`
	Lyrics string `json:"lyrics"`
}

// GenerateLyrics implements generation.LyricsGenerator. The model is asked
// for a JSON object; the reply is tolerant-parsed to survive markdown
// fencing around the JSON.
func (c *Client) GenerateLyrics(ctx context.Context, profileURL, lang string) (*domain.LyricsResult, error) {
	if lang == "" {
		lang = "en"
	}

	prompt := fmt.Sprintf(
		`Write an original song inspired by the public persona behind %s.
Language: %s. Two verses and a chorus, under 500 characters total.
Reply with a JSON object only: {"title": "...", "lyrics": "..."}`,
		profileURL, lang,
	)

	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed lyricsSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &parsed); err != nil {
		c.logger.Warn("failed to parse lyrics response",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: failed to parse lyrics JSON: %v",
			generation.ErrInvalidResponse, err)
	}
	if parsed.Lyrics == "" {
		return nil, fmt.Errorf("%w: empty lyrics", generation.ErrEmptyResult)
	}

	return &domain.LyricsResult{
		Lyrics: parsed.Lyrics,
		Title:  parsed.Title,
	}, nil
}

// callWithRetry calls the Gemini API with exponential backoff and jitter.
// Permanent errors (blocked content, unusable responses) are returned
// immediately; transport errors are retried.
func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		text, transient, err := c.call(ctx, prompt)
		if err == nil {
			return text, nil
		}

		c.logger.Warn("gemini call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if !transient {
			return "", err
		}
		if attempt >= defaultMaxRetries {
			return "", fmt.Errorf("%w: exceeded %d attempts: %v",
				generation.ErrTransientFailure, defaultMaxRetries+1, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(defaultRetryDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// call makes a single Gemini API request. The second return value reports
// whether the failure is worth retrying.
func (c *Client) call(ctx context.Context, prompt string) (string, bool, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", false, fmt.Errorf("%w: blocked by safety filters", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", false, fmt.Errorf("%w: empty response text", generation.ErrEmptyResult)
	}
	return text, false, nil
}

// extractJSON strips markdown code fencing the model sometimes wraps JSON
// replies in.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return trimmed[start : end+1]
		}
	}
	return trimmed
}

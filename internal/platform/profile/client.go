// Package profile implements the profile lookup interface against the
// public profile service, with an in-memory read-through cache.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/soluna-labs/mirage-api/internal/config"
	"github.com/soluna-labs/mirage-api/internal/generation"
)

const (
	defaultTimeout = 30 * time.Second
	cacheTTL       = 15 * time.Minute

	regionCN      = "CN"
	regionDefault = "USA"
)

// cacheEntry holds a resolved profile and its expiry.
type cacheEntry struct {
	profile   generation.Profile
	expiresAt time.Time
}

// Client resolves profile handles over HTTP. Resolved profiles are cached
// in memory for a short TTL because the same handle is looked up repeatedly
// across the stages of one generation run.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

var _ generation.ProfileLookup = (*Client)(nil)

// NewClient creates a profile lookup client from the generation settings.
func NewClient(cfg config.GenerationConfig, logger *slog.Logger) (*Client, error) {
	if cfg.ProfileBaseURL == "" {
		return nil, fmt.Errorf("%w: profile base URL cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		baseURL:    cfg.ProfileBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "profile_client")),
		cache:      make(map[string]cacheEntry),
		now:        time.Now,
	}, nil
}

// profileResponse is the wire shape of the profile service reply.
type profileResponse struct {
	Handle      string `json:"handle"`
	AvatarURL   string `json:"avatar_url"`
	Description string `json:"description"`
	Region      string `json:"region"`
	Nickname    string `json:"nickname"`
}

// Lookup implements generation.ProfileLookup.
func (c *Client) Lookup(ctx context.Context, handle string) (*generation.Profile, error) {
	handle = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if handle == "" {
		return nil, fmt.Errorf("%w: empty handle", generation.ErrProfileNotFound)
	}

	if p, ok := c.fromCache(handle); ok {
		return p, nil
	}

	p, err := c.fetch(ctx, handle)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[handle] = cacheEntry{profile: *p, expiresAt: c.now().Add(cacheTTL)}
	c.mu.Unlock()

	return p, nil
}

func (c *Client) fromCache(handle string) (*generation.Profile, bool) {
	c.mu.RLock()
	entry, ok := c.cache[handle]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	p := entry.profile
	return &p, true
}

func (c *Client) fetch(ctx context.Context, handle string) (*generation.Profile, error) {
	reqURL := fmt.Sprintf("%s/v1/profiles/%s", c.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", generation.ErrProfileNotFound, handle)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("profile lookup failed",
			slog.String("handle", handle),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: profile service returned %d: %s",
			generation.ErrGenerationFailed, resp.StatusCode, excerpt)
	}

	var wire profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v",
			generation.ErrInvalidResponse, err)
	}

	return &generation.Profile{
		Handle:       handle,
		AvatarURL:    wire.AvatarURL,
		Avatar400URL: avatar400(wire.AvatarURL),
		Description:  wire.Description,
		Region:       resolveRegion(wire.Region, wire.Nickname, wire.Description),
	}, nil
}

// avatar400 rewrites a CDN avatar URL to its 400x400 rendition. Avatar URLs
// end with a size suffix like "_normal.jpg"; when no suffix is present the
// original URL is returned untouched.
func avatar400(avatarURL string) string {
	if avatarURL == "" {
		return ""
	}
	for _, size := range []string{"_normal", "_bigger", "_mini"} {
		if idx := strings.LastIndex(avatarURL, size); idx >= 0 {
			return avatarURL[:idx] + "_400x400" + avatarURL[idx+len(size):]
		}
	}
	return avatarURL
}

// resolveRegion prefers the region the profile service reports. Without one,
// profiles whose nickname or description carries CJK text are assumed CN;
// everything else falls back to USA.
func resolveRegion(region, nickname, description string) string {
	if region != "" {
		return region
	}
	if containsCJK(nickname) || containsCJK(description) {
		return regionCN
	}
	return regionDefault
}

func containsCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/config"
	"github.com/soluna-labs/mirage-api/internal/generation"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(config.GenerationConfig{ProfileBaseURL: baseURL}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.GenerationConfig{}, nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestClient_Lookup(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/v1/profiles/someone":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"handle": "someone",
				"avatar_url": "https://cdn.example.com/a_normal.jpg",
				"description": "makes things",
				"region": "GB"
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	t.Run("resolves and normalizes the handle", func(t *testing.T) {
		p, err := client.Lookup(ctx, " @SomeOne ")
		require.NoError(t, err)
		assert.Equal(t, "someone", p.Handle)
		assert.Equal(t, "https://cdn.example.com/a_normal.jpg", p.AvatarURL)
		assert.Equal(t, "https://cdn.example.com/a_400x400.jpg", p.Avatar400URL)
		assert.Equal(t, "GB", p.Region)
	})

	t.Run("second lookup is served from the cache", func(t *testing.T) {
		before := requests.Load()
		_, err := client.Lookup(ctx, "someone")
		require.NoError(t, err)
		assert.Equal(t, before, requests.Load())
	})

	t.Run("expired cache entries are refetched", func(t *testing.T) {
		client.now = func() time.Time { return time.Now().Add(cacheTTL + time.Minute) }
		defer func() { client.now = time.Now }()

		before := requests.Load()
		_, err := client.Lookup(ctx, "someone")
		require.NoError(t, err)
		assert.Equal(t, before+1, requests.Load())
	})

	t.Run("unknown handle", func(t *testing.T) {
		_, err := client.Lookup(ctx, "nobody")
		assert.ErrorIs(t, err, generation.ErrProfileNotFound)
	})

	t.Run("empty handle", func(t *testing.T) {
		_, err := client.Lookup(ctx, "  @ ")
		assert.ErrorIs(t, err, generation.ErrProfileNotFound)
	})
}

func TestClient_LookupTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	_, err := client.Lookup(context.Background(), "someone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generation.ErrTransientFailure))
}

func TestClient_LookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Lookup(context.Background(), "someone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, generation.ErrGenerationFailed))
}

func TestAvatar400(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"normal suffix", "https://cdn.example.com/a_normal.jpg", "https://cdn.example.com/a_400x400.jpg"},
		{"bigger suffix", "https://cdn.example.com/a_bigger.png", "https://cdn.example.com/a_400x400.png"},
		{"mini suffix", "https://cdn.example.com/a_mini.jpg", "https://cdn.example.com/a_400x400.jpg"},
		{"no suffix", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, avatar400(tc.in))
		})
	}
}

func TestResolveRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		region      string
		nickname    string
		description string
		want        string
	}{
		{"service region wins", "JP", "小明", "", "JP"},
		{"han nickname implies CN", "", "小明", "", "CN"},
		{"han description implies CN", "", "mike", "喜欢唱歌", "CN"},
		{"latin only falls back", "", "mike", "likes singing", "USA"},
		{"empty everything", "", "", "", "USA"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolveRegion(tc.region, tc.nickname, tc.description))
		})
	}
}

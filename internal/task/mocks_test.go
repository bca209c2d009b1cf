package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/generation"
	"github.com/soluna-labs/mirage-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memTaskStore is an in-memory store.AIGCTaskStore with the same
// compare-and-swap semantics as the database implementation. Aggregates are
// deep-copied on the way in and out so tests observe committed state only.
type memTaskStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*domain.AIGCTask
	updates int

	// conflictsLeft makes the next N updates fail with a version conflict
	// while still applying the concurrent writer's version bump.
	conflictsLeft int
}

func newMemTaskStore(tasks ...*domain.AIGCTask) *memTaskStore {
	s := &memTaskStore{tasks: make(map[uuid.UUID]*domain.AIGCTask)}
	for _, t := range tasks {
		s.tasks[t.TaskID] = cloneAggregate(t)
	}
	return s
}

func cloneAggregate(t *domain.AIGCTask) *domain.AIGCTask {
	data, err := json.Marshal(t)
	if err != nil {
		panic(fmt.Sprintf("failed to clone aggregate: %v", err))
	}
	var out domain.AIGCTask
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("failed to clone aggregate: %v", err))
	}
	return &out
}

func (s *memTaskStore) Create(ctx context.Context, t *domain.AIGCTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.TaskID] = cloneAggregate(t)
	return nil
}

func (s *memTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AIGCTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneAggregate(t), nil
}

func (s *memTaskStore) GetActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.AIGCTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.TenantID == tenantID {
			return cloneAggregate(t), nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (s *memTaskStore) Update(ctx context.Context, t *domain.AIGCTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[t.TaskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		current.Version++
		return store.ErrVersionConflict
	}
	if current.Version != t.Version {
		return store.ErrVersionConflict
	}

	t.Version++
	s.tasks[t.TaskID] = cloneAggregate(t)
	s.updates++
	return nil
}

func (s *memTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) WithTx(tx *sql.Tx) store.AIGCTaskStore {
	return s
}

func (s *memTaskStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// Provider stubs with injectable behavior.

type stubImages struct {
	mu    sync.Mutex
	calls []string
	fn    func(refs []string, prompt, scenario string) (string, error)
}

func (s *stubImages) GenerateImage(ctx context.Context, refs []string, prompt, scenario string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, scenario)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(refs, prompt, scenario)
	}
	return "https://provider.example.com/" + scenario + ".png", nil
}

type stubVideos struct {
	fn func(firstFrameURL, prompt string) (string, error)
}

func (s *stubVideos) GenerateVideo(ctx context.Context, firstFrameURL, prompt string) (string, error) {
	if s.fn != nil {
		return s.fn(firstFrameURL, prompt)
	}
	return "https://provider.example.com/video.mp4", nil
}

type stubLyrics struct {
	fn func(profileURL, lang string) (*domain.LyricsResult, error)
}

func (s *stubLyrics) GenerateLyrics(ctx context.Context, profileURL, lang string) (*domain.LyricsResult, error) {
	if s.fn != nil {
		return s.fn(profileURL, lang)
	}
	return &domain.LyricsResult{Lyrics: "la la la", Title: "a song"}, nil
}

type stubMusic struct {
	mu   sync.Mutex
	last *domain.MusicRequest
	fn   func(req domain.MusicRequest) (*domain.MusicResult, error)
}

func (s *stubMusic) GenerateMusic(ctx context.Context, req domain.MusicRequest) (*domain.MusicResult, error) {
	s.mu.Lock()
	r := req
	s.last = &r
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(req)
	}
	return &domain.MusicResult{AudioURL: "https://provider.example.com/track.mp3"}, nil
}

type stubSpeech struct {
	fn func(postURL, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error)
}

func (s *stubSpeech) SynthesizeFromPost(ctx context.Context, postURL, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error) {
	if s.fn != nil {
		return s.fn(postURL, voiceID, cloneAudioURL, lang)
	}
	return &domain.SpeechClip{AudioURL: "https://provider.example.com/clip.mp3", PostURL: postURL}, nil
}

func (s *stubSpeech) SynthesizeText(ctx context.Context, content, voiceID, cloneAudioURL, lang string) (*domain.SpeechClip, error) {
	return &domain.SpeechClip{AudioURL: "https://provider.example.com/clip.mp3", Content: content}, nil
}

type stubObjects struct {
	mu     sync.Mutex
	stored []string
	fn     func(remoteURL string) (string, error)
}

func (s *stubObjects) Store(ctx context.Context, remoteURL string) (string, error) {
	s.mu.Lock()
	s.stored = append(s.stored, remoteURL)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(remoteURL)
	}
	return "https://storage.example.com/" + uuid.NewString(), nil
}

// memSpeechStore is an in-memory store.SpeechTaskStore.
type memSpeechStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.SpeechTask
}

func newMemSpeechStore(tasks ...*domain.SpeechTask) *memSpeechStore {
	s := &memSpeechStore{tasks: make(map[uuid.UUID]*domain.SpeechTask)}
	for _, t := range tasks {
		copied := *t
		s.tasks[t.ID] = &copied
	}
	return s
}

func (s *memSpeechStore) Create(ctx context.Context, t *domain.SpeechTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *t
	s.tasks[t.ID] = &copied
	return nil
}

func (s *memSpeechStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.SpeechTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrSpeechTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *memSpeechStore) Update(ctx context.Context, t *domain.SpeechTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return store.ErrSpeechTaskNotFound
	}
	copied := *t
	s.tasks[t.ID] = &copied
	return nil
}

func (s *memSpeechStore) FindPending(ctx context.Context, limit int) ([]*domain.SpeechTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.SpeechTask
	for _, t := range s.tasks {
		if t.Status == domain.SpeechTaskStatusPending && len(out) < limit {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memSpeechStore) WithTx(tx *sql.Tx) store.SpeechTaskStore {
	return s
}

type stubProfiles struct {
	fn func(handle string) (*generation.Profile, error)
}

func (s *stubProfiles) Lookup(ctx context.Context, handle string) (*generation.Profile, error) {
	if s.fn != nil {
		return s.fn(handle)
	}
	return &generation.Profile{Handle: handle, Region: "USA"}, nil
}

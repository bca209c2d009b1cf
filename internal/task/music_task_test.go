package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/domain"
)

func TestTruncateLyrics(t *testing.T) {
	t.Parallel()

	short := "a short verse"
	assert.Equal(t, short, truncateLyrics(short))

	exact := strings.Repeat("x", maxLyricsChars)
	assert.Equal(t, exact, truncateLyrics(exact))

	long := strings.Repeat("x", maxLyricsChars+100)
	assert.Equal(t, maxLyricsChars, len(truncateLyrics(long)))

	// The cap counts runes, not bytes.
	cjk := strings.Repeat("歌", maxLyricsChars+10)
	truncated := truncateLyrics(cjk)
	assert.Equal(t, maxLyricsChars, utf8.RuneCountInString(truncated))
}

// musicStageTask returns an aggregate with an in-progress music sub-task.
func musicStageTask(t *testing.T, lyrics string) *domain.AIGCTask {
	t.Helper()

	aggregate, err := domain.NewAIGCTask(uuid.New())
	require.NoError(t, err)

	aggregate.VoiceCloneURL = "https://cdn.example.com/clone.mp3"
	aggregate.Music = &domain.Music{SubTask: domain.NewSubTask()}
	aggregate.Music.Input = &domain.MusicRequest{Lyrics: lyrics}
	return aggregate
}

func TestMusicGenerationTask_AppliesDefaultsAndCommits(t *testing.T) {
	aggregate := musicStageTask(t, strings.Repeat("la ", 300))
	taskStore := newMemTaskStore(aggregate)
	music := &stubMusic{}
	objects := &stubObjects{
		fn: func(remoteURL string) (string, error) {
			return "https://storage.example.com/track.mp3", nil
		},
	}

	musicTask, err := NewMusicGenerationTask(
		aggregate.TaskID, aggregate.Music.SubTaskID,
		taskStore, music, objects, "Abbess", testLogger())
	require.NoError(t, err)

	require.NoError(t, musicTask.Execute(context.Background()))

	// The provider saw the defaulted voice, the task's clone audio, and the
	// truncated lyric text.
	require.NotNil(t, music.last)
	assert.Equal(t, "Abbess", music.last.Voice)
	assert.Equal(t, "https://cdn.example.com/clone.mp3", music.last.ReferenceAudioURL)
	assert.LessOrEqual(t, utf8.RuneCountInString(music.last.Lyrics), maxLyricsChars)

	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubTaskStatusDone, saved.Music.Status)
	require.NotNil(t, saved.Music.Output)
	assert.Equal(t, "https://storage.example.com/track.mp3", saved.Music.Output.AudioURL)
}

func TestMusicGenerationTask_ExplicitVoiceIsKept(t *testing.T) {
	aggregate := musicStageTask(t, "la la la")
	aggregate.Music.Input.Voice = "Baritone"
	taskStore := newMemTaskStore(aggregate)
	music := &stubMusic{}

	musicTask, err := NewMusicGenerationTask(
		aggregate.TaskID, aggregate.Music.SubTaskID,
		taskStore, music, &stubObjects{}, "Abbess", testLogger())
	require.NoError(t, err)

	require.NoError(t, musicTask.Execute(context.Background()))
	require.NotNil(t, music.last)
	assert.Equal(t, "Baritone", music.last.Voice)
}

func TestMusicGenerationTask_ProviderFailureFailsStage(t *testing.T) {
	aggregate := musicStageTask(t, "la la la")
	taskStore := newMemTaskStore(aggregate)
	music := &stubMusic{
		fn: func(req domain.MusicRequest) (*domain.MusicResult, error) {
			return nil, errors.New("provider unavailable")
		},
	}

	musicTask, err := NewMusicGenerationTask(
		aggregate.TaskID, aggregate.Music.SubTaskID,
		taskStore, music, &stubObjects{}, "Abbess", testLogger())
	require.NoError(t, err)

	err = musicTask.Execute(context.Background())
	require.Error(t, err)

	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubTaskStatusFailed, saved.Music.Status)
	assert.Nil(t, saved.Music.Output)
}

func TestMusicGenerationTask_MissingLyricsFailsStage(t *testing.T) {
	aggregate := musicStageTask(t, "")
	taskStore := newMemTaskStore(aggregate)

	musicTask, err := NewMusicGenerationTask(
		aggregate.TaskID, aggregate.Music.SubTaskID,
		taskStore, &stubMusic{}, &stubObjects{}, "Abbess", testLogger())
	require.NoError(t, err)

	err = musicTask.Execute(context.Background())
	require.Error(t, err)

	saved, err := taskStore.GetByID(context.Background(), aggregate.TaskID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubTaskStatusFailed, saved.Music.Status)
}

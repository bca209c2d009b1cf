package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/soluna-labs/mirage-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestNewUsageLimiter(t *testing.T) {
	t.Run("valid dependencies", func(t *testing.T) {
		limiter, err := NewUsageLimiter(new(MockUsageStore), 4, testLogger())
		require.NoError(t, err)
		assert.NotNil(t, limiter)
	})

	t.Run("nil usage store", func(t *testing.T) {
		_, err := NewUsageLimiter(nil, 4, testLogger())
		assert.Error(t, err)
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewUsageLimiter(new(MockUsageStore), 4, nil)
		assert.Error(t, err)
	})
}

func TestUsageLimiter_CheckAndRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("allows usage at the limit", func(t *testing.T) {
		usageStore := new(MockUsageStore)
		usageStore.On("Increment", mock.Anything, "client-1", "gen-cover").
			Return(store.Usage{Count: 4}, nil)
		usageStore.On("DefaultLimit", mock.Anything, "gen-cover").
			Return(int64(0), false, nil)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		err = limiter.CheckAndRecord(ctx, "client-1", "gen-cover")
		require.NoError(t, err)
		usageStore.AssertExpectations(t)
	})

	t.Run("rejects usage past the limit", func(t *testing.T) {
		usageStore := new(MockUsageStore)
		usageStore.On("Increment", mock.Anything, "client-1", "gen-cover").
			Return(store.Usage{Count: 5}, nil)
		usageStore.On("DefaultLimit", mock.Anything, "gen-cover").
			Return(int64(0), false, nil)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		err = limiter.CheckAndRecord(ctx, "client-1", "gen-cover")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQuotaExceeded))
	})

	t.Run("resource default overrides service default", func(t *testing.T) {
		usageStore := new(MockUsageStore)
		usageStore.On("Increment", mock.Anything, "client-1", "gen-audio").
			Return(store.Usage{Count: 5}, nil)
		usageStore.On("DefaultLimit", mock.Anything, "gen-audio").
			Return(int64(10), true, nil)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		// Count 5 is over the service default of 4 but under the resource
		// default of 10.
		err = limiter.CheckAndRecord(ctx, "client-1", "gen-audio")
		require.NoError(t, err)
	})

	t.Run("per key override wins over everything", func(t *testing.T) {
		usageStore := new(MockUsageStore)
		usageStore.On("Increment", mock.Anything, "client-1", "gen-audio").
			Return(store.Usage{Count: 3, LimitOverride: int64Ptr(2)}, nil)
		usageStore.On("DefaultLimit", mock.Anything, "gen-audio").
			Return(int64(10), true, nil)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		err = limiter.CheckAndRecord(ctx, "client-1", "gen-audio")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrQuotaExceeded))
	})

	t.Run("counter keeps growing on rejected attempts", func(t *testing.T) {
		// The increment happens before the comparison, so each rejected
		// retry still burns count. Verify Increment is called every time.
		usageStore := new(MockUsageStore)
		usageStore.On("Increment", mock.Anything, "client-1", "gen-lyrics").
			Return(store.Usage{Count: 5}, nil).Once()
		usageStore.On("Increment", mock.Anything, "client-1", "gen-lyrics").
			Return(store.Usage{Count: 6}, nil).Once()
		usageStore.On("Increment", mock.Anything, "client-1", "gen-lyrics").
			Return(store.Usage{Count: 7}, nil).Once()
		usageStore.On("DefaultLimit", mock.Anything, "gen-lyrics").
			Return(int64(0), false, nil)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			err = limiter.CheckAndRecord(ctx, "client-1", "gen-lyrics")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrQuotaExceeded))
		}
		usageStore.AssertNumberOfCalls(t, "Increment", 3)
	})

	t.Run("increment failure is wrapped", func(t *testing.T) {
		usageStore := new(MockUsageStore)
		storeErr := errors.New("connection reset")
		usageStore.On("Increment", mock.Anything, "client-1", "gen-cover").
			Return(store.Usage{}, storeErr)

		limiter, err := NewUsageLimiter(usageStore, 4, testLogger())
		require.NoError(t, err)

		err = limiter.CheckAndRecord(ctx, "client-1", "gen-cover")
		require.Error(t, err)
		assert.True(t, errors.Is(err, storeErr))
		assert.False(t, errors.Is(err, ErrQuotaExceeded))
	})
}

package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/inboundpanel/internal/cache"
)

func TestRateLimiterWindow(t *testing.T) {
	ctx := context.Background()
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}
	res, err := limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.True(t, res.ResetAt.After(time.Now()))

	other, err := limiter.Allow(ctx, "5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	limiter.Reset(ctx, "1.2.3.4")
	res, err = limiter.Allow(ctx, "1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = limiter.Allow(ctx, "x", 0, time.Minute)
	assert.Error(t, err)
}

func TestNewRateLimiterRequiresStore(t *testing.T) {
	_, err := NewRateLimiter(nil)
	assert.Error(t, err)
}

func TestMemoryRecorderAndActor(t *testing.T) {
	ctx := WithActor(context.Background(), "admin", "10.0.0.1")
	actor, ip := ActorFrom(ctx)
	assert.Equal(t, "admin", actor)
	assert.Equal(t, "10.0.0.1", ip)

	actor, ip = ActorFrom(context.Background())
	assert.Empty(t, actor)
	assert.Empty(t, ip)

	rec := &MemoryRecorder{}
	rec.Record(ctx, Event{Kind: EventPackCommit})
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventPackCommit, events[0].Kind)
	assert.False(t, events[0].Occurred.IsZero())

	NewLoggerRecorder(nil).Record(ctx, Event{Kind: EventInboundCreate})
}

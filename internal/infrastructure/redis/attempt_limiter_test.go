package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptLimiter_CapsPerKey(t *testing.T) {
	t.Parallel()

	fw, mr := newMiniLimiter(t)
	l := NewAttemptLimiter(fw, 2, 10*time.Minute)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "verify:u1")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}
	assert.True(t, mr.Exists(Key("attempts", "verify:u1")))

	ok, err := l.Allow(ctx, "verify:u2")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(10 * time.Minute)
	ok, err = l.Allow(ctx, "verify:u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttemptLimiter_RedisDown_ReturnsError(t *testing.T) {
	t.Parallel()

	fw, mr := newMiniLimiter(t)
	mr.Close()

	ok, err := NewAttemptLimiter(fw, 5, time.Minute).Allow(context.Background(), "verify:u1")
	require.Error(t, err)
	assert.False(t, ok)
}

package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestLimiter_AllowsUpToMax(t *testing.T) {
	rdb := setupMiniredis(t)
	l := New(rdb)
	ctx := context.Background()
	windows := []Window{{Max: 2, Seconds: 60}}

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, "agent-1", "memory:write", windows)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, retryAfter, err := l.Allow(ctx, "agent-1", "memory:write", windows)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestLimiter_IndependentPrincipals(t *testing.T) {
	rdb := setupMiniredis(t)
	l := New(rdb)
	ctx := context.Background()
	windows := []Window{{Max: 1, Seconds: 60}}

	allowed, _, err := l.Allow(ctx, "agent-1", "memory:write", windows)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = l.Allow(ctx, "agent-1", "memory:write", windows)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = l.Allow(ctx, "agent-2", "memory:write", windows)
	require.NoError(t, err)
	assert.True(t, allowed, "a different principal has an independent window")
}

func TestLimiter_MultiWindowShortCircuitsOnFirstOffender(t *testing.T) {
	rdb := setupMiniredis(t)
	l := New(rdb)
	ctx := context.Background()
	windows := []Window{{Max: 1, Seconds: 60}, {Max: 2, Seconds: 86400}}

	allowed, _, err := l.Allow(ctx, "agent-1", "memory:write", windows)
	require.NoError(t, err)
	assert.True(t, allowed)

	// The 60s window trips first even though the daily window has headroom.
	allowed, retryAfter, err := l.Allow(ctx, "agent-1", "memory:write", windows)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.LessOrEqual(t, retryAfter, 60)
}

func TestLimiter_AllowIP(t *testing.T) {
	rdb := setupMiniredis(t)
	l := New(rdb)
	ctx := context.Background()

	for i := 0; i < RegistrationIPWindow.Max; i++ {
		allowed, _, err := l.AllowIP(ctx, "1.2.3.4", "agents:register", RegistrationIPWindow)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, retryAfter, err := l.AllowIP(ctx, "1.2.3.4", "agents:register", RegistrationIPWindow)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, retryAfter, 1)
}

func TestLimits_DefaultForUnknownEndpoint(t *testing.T) {
	windows := Limits("unknown:endpoint", 0)
	require.Len(t, windows, 1)
	assert.Equal(t, 10, windows[0].Max)
	assert.Equal(t, 60, windows[0].Seconds)
}

func TestLimits_WriteTrustZero(t *testing.T) {
	windows := Limits("memory:write", 0)
	require.Len(t, windows, 2)
	assert.Equal(t, Window{Max: 1, Seconds: 60}, windows[0])
	assert.Equal(t, Window{Max: 2, Seconds: 86400}, windows[1])
}

package searchcache

import (
	"context"
	"testing"
	"time"

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

func TestCache_MissThenHit(t *testing.T) {
	rdb := setupMiniredis(t)
	c := New(rdb, 120*time.Second)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "hello", 10)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []Row{{MemoryID: "m1", ShortID: "RCL-AAAAAAAA", Similarity: 0.9}}
	require.NoError(t, c.Put(ctx, "hello", 10, rows))

	got, ok, err := c.Get(ctx, "hello", 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got)
}

func TestCache_DistinctLimitsAreDistinctKeys(t *testing.T) {
	rdb := setupMiniredis(t)
	c := New(rdb, 120*time.Second)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "hello", 10, []Row{{MemoryID: "m1"}}))

	_, ok, err := c.Get(ctx, "hello", 20)
	require.NoError(t, err)
	assert.False(t, ok, "a different limit must miss")
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("hello", 10)
	k2 := Key("hello", 10)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, len("search_cache:")+keyDigestLen)

	k3 := Key("hello", 20)
	assert.NotEqual(t, k1, k3)
}

// Package ratelimit implements the multi-window sliding-window log (C4):
// a sorted set per (principal, endpoint, window) key, checked with a single
// pipelined batch of Redis commands per window.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter enforces sliding-window request limits backed by Redis sorted
// sets. It is safe for concurrent use; the underlying client is a
// process-wide singleton (§5, §9).
type Limiter struct {
	client redis.Cmdable
}

func New(client redis.Cmdable) *Limiter {
	return &Limiter{client: client}
}

// Allow checks every window in order and short-circuits on the first denial,
// returning that window's retry-after. All windows use independent keys so
// they never interfere with one another (§4.4).
func (l *Limiter) Allow(ctx context.Context, principal, endpoint string, windows []Window) (allowed bool, retryAfterSeconds int, err error) {
	for _, w := range windows {
		key := fmt.Sprintf("rl:%s:%s:%d", principal, endpoint, w.Seconds)
		ok, retryAfter, err := l.checkWindow(ctx, key, w)
		if err != nil {
			return false, 0, err
		}
		if !ok {
			return false, retryAfter, nil
		}
	}
	return true, 0, nil
}

// AllowIP is the unauthenticated per-IP variant used for agent registration.
func (l *Limiter) AllowIP(ctx context.Context, ip, endpoint string, w Window) (allowed bool, retryAfterSeconds int, err error) {
	key := fmt.Sprintf("rl:ip:%s:%s", ip, endpoint)
	return l.checkWindow(ctx, key, w)
}

// checkWindow runs the five-step pipelined batch from §4.4: evict expired
// entries, add the current request, count, refresh TTL, peek the oldest
// remaining entry. The current request is added before counting, so
// max_requests = N permits exactly N within the window.
func (l *Limiter) checkWindow(ctx context.Context, key string, w Window) (bool, int, error) {
	now := time.Now()
	nowSeconds := float64(now.UnixNano()) / 1e9
	windowStart := nowSeconds - float64(w.Seconds)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', -1, 64))
	pipe.ZAdd(ctx, key, redis.Z{Score: nowSeconds, Member: member})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(w.Seconds)*time.Second)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit: pipeline exec: %w", err)
	}

	count := countCmd.Val()
	if count <= int64(w.Max) {
		return true, 0, nil
	}

	retryAfter := w.Seconds
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		retryAfter = int(math.Ceil(oldest[0].Score + float64(w.Seconds) - nowSeconds))
	}
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}

package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps OTP sends per phone number with a sliding window kept
// in a Redis sorted set. Only sends count against the limit, not verifies.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  3,
		window: time.Hour,
	}
}

func limitKey(phone string) string {
	return "otp:rate_limit:" + phone
}

// IsLimited reports whether the phone number has exhausted its window,
// and if so how long until the oldest send expires.
func (l *RateLimiter) IsLimited(ctx context.Context, phone string) (bool, time.Duration, error) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	k := limitKey(phone)
	if err := l.client.ZRemRangeByScore(ctx, k, "0", fmt.Sprint(cutoff.UnixMilli())).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	entries, err := l.client.ZRangeWithScores(ctx, k, 0, -1).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if len(entries) < l.limit {
		return false, 0, nil
	}

	oldest := time.UnixMilli(int64(entries[0].Score))
	retryAfter := oldest.Add(l.window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return true, retryAfter, nil
}

// Record counts one OTP send for the phone number.
func (l *RateLimiter) Record(ctx context.Context, phone string) error {
	now := time.Now()
	k := limitKey(phone)
	if err := l.client.ZAdd(ctx, k, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: now.UnixNano(),
	}).Err(); err != nil {
		return fmt.Errorf("failed to record otp send: %w", err)
	}
	return l.client.Expire(ctx, k, l.window).Err()
}

// Remaining returns how many sends are left in the current window.
func (l *RateLimiter) Remaining(ctx context.Context, phone string) (int, error) {
	cutoff := time.Now().Add(-l.window)
	k := limitKey(phone)
	if err := l.client.ZRemRangeByScore(ctx, k, "0", fmt.Sprint(cutoff.UnixMilli())).Err(); err != nil {
		return 0, err
	}
	count, err := l.client.ZCard(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

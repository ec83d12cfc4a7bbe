package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist tracks refresh tokens revoked by logout. Entries expire with
// the token itself, so the set never outgrows the refresh TTL.
type Blacklist struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBlacklist(client *redis.Client, refreshTTL time.Duration) *Blacklist {
	return &Blacklist{client: client, ttl: refreshTTL}
}

func blacklistKey(token string) string {
	return "auth:blacklist:" + token
}

func (b *Blacklist) Revoke(ctx context.Context, token string) error {
	if err := b.client.Set(ctx, blacklistKey(token), "1", b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.client.Get(ctx, blacklistKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return true, nil
}

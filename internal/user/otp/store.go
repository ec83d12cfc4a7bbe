// Package otp holds one-time verification codes in Redis and limits how
// often they may be requested.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCodeMismatch = errors.New("otp code does not match")
	ErrCodeExpired  = errors.New("otp code expired or never issued")
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(phone string) string {
	return "otp:code:" + phone
}

// Issue generates a 6-digit code for the phone number and stores it with
// the configured expiry. A new code replaces any outstanding one.
func (s *Store) Issue(ctx context.Context, phone string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, key(phone), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// Verify checks the code and consumes it on success.
func (s *Store) Verify(ctx context.Context, phone, code string) error {
	stored, err := s.client.Get(ctx, key(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}
	if stored != code {
		return ErrCodeMismatch
	}
	if err := s.client.Del(ctx, key(phone)).Err(); err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	return nil
}

func generateCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	code := make([]byte, 6)
	for i, v := range b {
		code[i] = '0' + v%10
	}
	return string(code), nil
}

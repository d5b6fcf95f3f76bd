package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemNS = ns + ":idem"

	idemLock   = "LOCK"
	idemResult = "RES:"
)

// KeyIdemBooking scopes an Idempotency-Key to the caller so two users can
// never see each other's responses.
func KeyIdemBooking(userID, idemKey string) string {
	return fmt.Sprintf("%s:bookings:%s:%s", idemNS, userID, idemKey)
}

// IdempotencyStore holds one slot per key: a short lock while the first
// request runs, then its response body for ttl.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	const op = "redis.IdempotencyStore.AcquireLock"

	ok, err := s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}
	return ok, nil
}

// SaveResult replaces the lock with the response body.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, jsonPayload string) error {
	const op = "redis.IdempotencyStore.SaveResult"

	if err := s.rdb.Set(ctx, key, idemResult+jsonPayload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

// GetResult reports a stored response. A held lock or a missing key both
// read as not found.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (string, bool, error) {
	const op = "redis.IdempotencyStore.GetResult"

	v, err := s.get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%s:%w", op, err)
	}

	payload, ok := strings.CutPrefix(v, idemResult)
	return payload, ok, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	const op = "redis.IdempotencyStore.IsLocked"

	v, err := s.get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}
	return v == idemLock, nil
}

// Release drops the lock so the client can retry after a failed request.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	const op = "redis.IdempotencyStore.Release"

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	return nil
}

func (s *IdempotencyStore) get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

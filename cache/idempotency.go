package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore maps a user's checkout idempotency key to the order it
// produced.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idemKey(userID uuid.UUID, key string) string {
	return "idem:checkout:" + userID.String() + ":" + key
}

func (s *IdempotencyStore) Get(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	val, err := s.client.Get(ctx, idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	orderID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	return orderID, true, nil
}

func (s *IdempotencyStore) Set(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	if err := s.client.Set(ctx, idemKey(userID, key), orderID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

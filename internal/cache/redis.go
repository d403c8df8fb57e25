package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyFmt = "idem:%s:%s"
	pendingMarker     = "__pending__"
)

// ErrInFlight is returned while another request holds the same idempotency key
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency stores responses of EMI collection calls keyed by the caller's
// Idempotency-Key. A nil *Idempotency is valid and stores nothing.
type Idempotency struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotency connects to Redis. On failure the client is closed and the
// error returned so the caller can run without the cache.
func NewIdempotency(addr, password string, db int, ttl time.Duration) (*Idempotency, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Idempotency{client: client, ttl: ttl}, nil
}

// Begin reserves the key for this request. It returns the stored response when
// the key was already completed, or ErrInFlight while it is still being served.
func (c *Idempotency) Begin(ctx context.Context, scope, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}

	k := fmt.Sprintf(idempotencyKeyFmt, scope, key)
	reserved, err := c.client.SetNX(ctx, k, pendingMarker, c.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if reserved {
		return nil, nil
	}

	stored, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SetNX and Get
			return c.Begin(ctx, scope, key)
		}
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if string(stored) == pendingMarker {
		return nil, ErrInFlight
	}
	return stored, nil
}

// Complete stores the response for the key
func (c *Idempotency) Complete(ctx context.Context, scope, key string, response []byte) error {
	if c == nil {
		return nil
	}
	k := fmt.Sprintf(idempotencyKeyFmt, scope, key)
	if err := c.client.Set(ctx, k, response, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Release drops the reservation so the caller may retry after a failure
func (c *Idempotency) Release(ctx context.Context, scope, key string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, fmt.Sprintf(idempotencyKeyFmt, scope, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Idempotency) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

const keyPrefix = "storefront:"

// IdentityRepository implements repository.IdentityRepository using Redis.
// Keys never expire.
type IdentityRepository struct {
	client       redis.UniversalClient
	installation string
}

// NewIdentityRepository creates a Redis-backed identity store scoped to the
// given installation id.
func NewIdentityRepository(client redis.UniversalClient, installationID string) *IdentityRepository {
	return &IdentityRepository{
		client:       client,
		installation: installationID,
	}
}

func (r *IdentityRepository) key(name string) string {
	return keyPrefix + r.installation + ":" + name
}

// Get retrieves a value by key from Redis.
func (r *IdentityRepository) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("identity key", key)
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value without expiry.
func (r *IdentityRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes a key from Redis.
func (r *IdentityRepository) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

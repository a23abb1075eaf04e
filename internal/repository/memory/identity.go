package memory

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// IdentityRepository is an in-process identity store for tests and
// ephemeral sessions.
type IdentityRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewIdentityRepository creates an empty in-memory identity store.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{values: make(map[string]string)}
}

// Get returns the value stored under key, or a NotFound error.
func (r *IdentityRepository) Get(_ context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", apperrors.NotFound("identity key", key)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (r *IdentityRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	r.values[key] = value
	r.mu.Unlock()
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (r *IdentityRepository) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.values, key)
	r.mu.Unlock()
	return nil
}

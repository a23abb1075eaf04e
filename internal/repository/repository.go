package repository

import "context"

// IdentityRepository defines the durable key/value store holding the
// session identity (cart_uuid, access_token, email) of one installation.
type IdentityRepository interface {
	// Get returns the value stored at key. A missing key yields an
	// apperrors.ErrNotFound error.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

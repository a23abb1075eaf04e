package service

import (
	"context"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// CartRemote is the storefront API surface used for cart state.
// It is satisfied by *remote.Client.
type CartRemote interface {
	FetchCart(ctx context.Context) ([]domain.CartLineItem, error)
	AddItem(ctx context.Context, productID, variantID domain.FlexibleID, quantity int) error
	RemoveItem(ctx context.Context, variantID domain.FlexibleID) error
	HasUserCart(ctx context.Context) (bool, error)
	MergeGuestCart(ctx context.Context, cartUUID string) error
}

// AuthRemote is the storefront API surface used for authentication.
// It is satisfied by *remote.Client.
type AuthRemote interface {
	Login(ctx context.Context, email, password string) (domain.AuthResult, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error)
}

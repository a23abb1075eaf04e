package service

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/EcommerceGo/storefront/internal/cart"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/memory"
)

// --- Mock remotes ---

type mockCartRemote struct {
	mock.Mock
}

func (m *mockCartRemote) FetchCart(ctx context.Context) ([]domain.CartLineItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CartLineItem), args.Error(1)
}

func (m *mockCartRemote) AddItem(ctx context.Context, productID, variantID domain.FlexibleID, quantity int) error {
	args := m.Called(ctx, productID, variantID, quantity)
	return args.Error(0)
}

func (m *mockCartRemote) RemoveItem(ctx context.Context, variantID domain.FlexibleID) error {
	args := m.Called(ctx, variantID)
	return args.Error(0)
}

func (m *mockCartRemote) HasUserCart(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRemote) MergeGuestCart(ctx context.Context, cartUUID string) error {
	args := m.Called(ctx, cartUUID)
	return args.Error(0)
}

type mockAuthRemote struct {
	mock.Mock
}

func (m *mockAuthRemote) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

func (m *mockAuthRemote) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

// failingIdentity wraps a memory store and fails writes to selected keys.
type failingIdentity struct {
	*memory.IdentityRepository
	failSet    map[string]bool
	failRemove map[string]bool
}

var errStoreDown = errors.New("store unavailable")

func (f *failingIdentity) Set(ctx context.Context, key, value string) error {
	if f.failSet[key] {
		return errStoreDown
	}
	return f.IdentityRepository.Set(ctx, key, value)
}

func (f *failingIdentity) Remove(ctx context.Context, key string) error {
	if f.failRemove[key] {
		return errStoreDown
	}
	return f.IdentityRepository.Remove(ctx, key)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func disabledProducer() *event.Producer {
	return event.NewProducer(nil, "test", newTestLogger())
}

type fixture struct {
	remote    *mockCartRemote
	auth      *mockAuthRemote
	identity  *memory.IdentityRepository
	container *cart.Container
	merge     *MergeOrchestrator
	sync      *SyncService
	session   *SessionService
	cart      *CartService
}

func newFixture(discardStale bool) *fixture {
	f := &fixture{
		remote:    &mockCartRemote{},
		auth:      &mockAuthRemote{},
		identity:  memory.NewIdentityRepository(),
		container: cart.NewContainer(),
	}
	logger := newTestLogger()
	producer := disabledProducer()
	f.merge = NewMergeOrchestrator(f.remote, f.identity, producer, logger)
	f.sync = NewSyncService(f.remote, f.identity, f.container, producer, logger, discardStale)
	f.session = NewSessionService(f.auth, f.identity, f.merge, f.sync, f.container, logger)
	f.cart = NewCartService(f.remote, f.container, "https://cdn.example.com", logger)
	return f
}

func lineItem(id, productID string, qty int) domain.CartLineItem {
	return domain.CartLineItem{
		ID:        domain.FlexibleID(id),
		ProductID: domain.FlexibleID(productID),
		Name:      "item " + id,
		Quantity:  qty,
	}
}

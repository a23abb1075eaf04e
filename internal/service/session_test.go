package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

func creds() domain.Credentials {
	return domain.Credentials{Email: "a@example.com", Password: "secret"}
}

// Guest cart "abc-123", login with token "tok", account without a cart:
// exactly one merge, cart_uuid removed, then a fetch replaces the cart.
func TestLogin_MergesGuestCartAndSyncs(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	f.container.AddItem(lineItem("guest-only", "p9", 1))

	f.auth.On("Login", mock.Anything, "a@example.com", "secret").
		Return(domain.AuthResult{AccessToken: "tok", Email: "a@example.com"}, nil)
	f.remote.On("HasUserCart", mock.Anything).Return(false, nil).Once()
	f.remote.On("MergeGuestCart", mock.Anything, "abc-123").Return(nil).Once()
	f.remote.On("FetchCart", mock.Anything).
		Return([]domain.CartLineItem{lineItem("v1", "p1", 2), lineItem("v2", "p2", 1)}, nil).Once()

	out, err := f.session.Login(ctx, creds())

	require.NoError(t, err)
	assert.Equal(t, MergeMerged, out.Merge)
	assert.Equal(t, SyncApplied, out.Sync)
	assert.Equal(t, domain.ModeAuthenticated, out.Session.Mode)
	assert.Equal(t, "a@example.com", out.Session.Email)
	assert.Equal(t, 2, out.Session.CartCount)
	f.remote.AssertNumberOfCalls(t, "MergeGuestCart", 1)
	f.remote.AssertExpectations(t)

	_, err = f.identity.Get(ctx, domain.KeyCartUUID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	token, err := f.identity.Get(ctx, domain.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, guestOnly := f.container.Get("guest-only")
	assert.False(t, guestOnly)
}

func TestLogin_ExistingAccountCartDiscardsGuestCart(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AuthResult{AccessToken: "tok", Email: "a@example.com"}, nil)
	f.remote.On("HasUserCart", mock.Anything).Return(true, nil)
	f.remote.On("FetchCart", mock.Anything).Return([]domain.CartLineItem{}, nil)

	out, err := f.session.Login(ctx, creds())

	require.NoError(t, err)
	assert.Equal(t, MergeDiscarded, out.Merge)
	f.remote.AssertNotCalled(t, "MergeGuestCart", mock.Anything, mock.Anything)
}

func TestLogin_MergeFailureDoesNotBlockLogin(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AuthResult{AccessToken: "tok", Email: "a@example.com"}, nil)
	f.remote.On("HasUserCart", mock.Anything).Return(false, errors.New("timeout"))
	f.remote.On("FetchCart", mock.Anything).Return(nil, errors.New("still down"))

	out, err := f.session.Login(ctx, creds())

	require.NoError(t, err)
	assert.Equal(t, MergeFailed, out.Merge)
	assert.Equal(t, SyncFailed, out.Sync)
	assert.Equal(t, domain.ModeAuthenticated, out.Session.Mode)
	stored, err := f.identity.Get(ctx, domain.KeyCartUUID)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", stored)
}

func TestLogin_ValidationError(t *testing.T) {
	f := newFixture(false)

	_, err := f.session.Login(context.Background(), domain.Credentials{Email: "not-an-email"})

	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "email")
	assert.Contains(t, verr.Fields(), "password")
	f.auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AuthResult{}, apperrors.Unauthorized("Email or Password is not Valid"))

	_, err := f.session.Login(ctx, creds())

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = f.identity.Get(ctx, domain.KeyAccessToken)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLogin_TokenPersistFailure(t *testing.T) {
	f := newFixture(false)
	ids := &failingIdentity{IdentityRepository: f.identity, failSet: map[string]bool{domain.KeyAccessToken: true}}
	f.session.identity = ids
	f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AuthResult{AccessToken: "tok", Email: "a@example.com"}, nil)

	_, err := f.session.Login(context.Background(), creds())

	assert.ErrorIs(t, err, errStoreDown)
	f.remote.AssertNotCalled(t, "HasUserCart", mock.Anything)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(false)
	reg := domain.Registration{
		FirstName: " Ada ", LastName: "Lovelace", Email: "ada@example.com", Password: "pw", Password2: "pw",
	}
	expected := reg
	expected.FirstName = "Ada"
	f.auth.On("Register", mock.Anything, expected).
		Return(domain.AuthResult{AccessToken: "tok", Email: "ada@example.com"}, nil)
	f.remote.On("FetchCart", mock.Anything).Return([]domain.CartLineItem{}, nil)

	out, err := f.session.Register(context.Background(), reg)

	require.NoError(t, err)
	assert.Equal(t, MergeSkipped, out.Merge)
	assert.Equal(t, "ada@example.com", out.Session.Email)
	f.auth.AssertExpectations(t)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	f := newFixture(false)
	reg := domain.Registration{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "pw", Password2: "other",
	}

	_, err := f.session.Register(context.Background(), reg)

	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "password2")
	f.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestLogout(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	require.NoError(t, f.identity.Set(ctx, domain.KeyAccessToken, "tok"))
	require.NoError(t, f.identity.Set(ctx, domain.KeyEmail, "a@example.com"))
	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	f.container.AddItem(lineItem("v1", "p1", 1))

	require.NoError(t, f.session.Logout(ctx))

	_, err := f.identity.Get(ctx, domain.KeyAccessToken)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.identity.Get(ctx, domain.KeyEmail)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	uuid, err := f.identity.Get(ctx, domain.KeyCartUUID)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", uuid)
	assert.Equal(t, 0, f.container.Count())

	view, err := f.session.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeGuest, view.Mode)
}

func TestLogout_AllowsMergeOnNextLogin(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	f.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AuthResult{AccessToken: "tok", Email: "a@example.com"}, nil)
	f.remote.On("HasUserCart", mock.Anything).Return(false, nil)
	f.remote.On("MergeGuestCart", mock.Anything, "abc-123").Return(nil)
	f.remote.On("FetchCart", mock.Anything).Return([]domain.CartLineItem{}, nil)

	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	_, err := f.session.Login(ctx, creds())
	require.NoError(t, err)
	require.NoError(t, f.session.Logout(ctx))
	require.NoError(t, f.identity.Set(ctx, domain.KeyCartUUID, "abc-123"))
	out, err := f.session.Login(ctx, creds())

	require.NoError(t, err)
	assert.Equal(t, MergeMerged, out.Merge)
	f.remote.AssertNumberOfCalls(t, "MergeGuestCart", 2)
}

func TestLogout_StoreFailureStillClearsCart(t *testing.T) {
	f := newFixture(false)
	f.session.identity = &failingIdentity{
		IdentityRepository: f.identity,
		failRemove:         map[string]bool{domain.KeyAccessToken: true},
	}
	f.container.AddItem(lineItem("v1", "p1", 1))

	err := f.session.Logout(context.Background())

	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 0, f.container.Count())
}

func TestCurrent_DecodesJWTExpiry(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	}).SignedString([]byte("unknown-to-client"))
	require.NoError(t, err)
	require.NoError(t, f.identity.Set(ctx, domain.KeyAccessToken, token))
	require.NoError(t, f.identity.Set(ctx, domain.KeyEmail, "a@example.com"))
	f.session.now = func() time.Time { return exp.Add(time.Minute) }

	view, err := f.session.Current(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuthenticated, view.Mode)
	assert.Equal(t, "42", view.Subject)
	require.NotNil(t, view.ExpiresAt)
	assert.True(t, exp.Equal(*view.ExpiresAt))
	assert.True(t, view.Expired)
}

func TestCurrent_OpaqueToken(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	require.NoError(t, f.identity.Set(ctx, domain.KeyAccessToken, "opaque-token"))

	view, err := f.session.Current(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.ModeAuthenticated, view.Mode)
	assert.Nil(t, view.ExpiresAt)
	assert.False(t, view.Expired)
	assert.Empty(t, view.Email)
}

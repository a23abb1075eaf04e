package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/EcommerceGo/storefront/internal/cart"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/validator"
)

// AuthOutcome is returned by Login and Register.
type AuthOutcome struct {
	Session domain.SessionView `json:"session"`
	Merge   MergeOutcome       `json:"merge"`
	Sync    string             `json:"sync"`
}

// SessionService drives the Guest to Authenticated transition and back.
type SessionService struct {
	auth      AuthRemote
	identity  repository.IdentityRepository
	merge     *MergeOrchestrator
	sync      *SyncService
	container *cart.Container
	logger    *slog.Logger
	now       func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(
	auth AuthRemote,
	identity repository.IdentityRepository,
	merge *MergeOrchestrator,
	sync *SyncService,
	container *cart.Container,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		auth:      auth,
		identity:  identity,
		merge:     merge,
		sync:      sync,
		container: container,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates with email and password, then merges the guest cart
// and resyncs. Merge and sync failures do not fail the login.
func (s *SessionService) Login(ctx context.Context, creds domain.Credentials) (*AuthOutcome, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := validator.Validate(creds); err != nil {
		return nil, err
	}

	res, err := s.auth.Login(ctx, creds.Email, creds.Password)
	sessionTransitionsTotal.WithLabelValues("login", outcomeLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, res)
}

// Register creates an account and signs in with it.
func (s *SessionService) Register(ctx context.Context, reg domain.Registration) (*AuthOutcome, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if err := validator.Validate(reg); err != nil {
		return nil, err
	}

	res, err := s.auth.Register(ctx, reg)
	sessionTransitionsTotal.WithLabelValues("register", outcomeLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return s.establish(ctx, res)
}

// establish persists the token, runs the merge, persists the email and
// pulls the now authoritative cart, in that order.
func (s *SessionService) establish(ctx context.Context, res domain.AuthResult) (*AuthOutcome, error) {
	if err := s.identity.Set(ctx, domain.KeyAccessToken, res.AccessToken); err != nil {
		return nil, fmt.Errorf("persist access token: %w", err)
	}

	outcome := s.merge.Run(ctx, res.AccessToken)

	if err := s.identity.Set(ctx, domain.KeyEmail, res.Email); err != nil {
		return nil, fmt.Errorf("persist email: %w", err)
	}

	synced, _ := s.sync.Sync(ctx, TriggerMerge)

	view, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session established",
		slog.String("email", res.Email),
		slog.String("merge", string(outcome)),
		slog.String("sync", synced.Outcome),
	)
	return &AuthOutcome{Session: *view, Merge: outcome, Sync: synced.Outcome}, nil
}

// Logout drops the credentials and the local cart. The guest cart_uuid,
// if any, is kept.
func (s *SessionService) Logout(ctx context.Context) error {
	var errs []error
	if err := s.identity.Remove(ctx, domain.KeyAccessToken); err != nil {
		errs = append(errs, fmt.Errorf("remove access token: %w", err))
	}
	if err := s.identity.Remove(ctx, domain.KeyEmail); err != nil {
		errs = append(errs, fmt.Errorf("remove email: %w", err))
	}
	s.container.Clear()
	cartItems.Set(0)
	s.merge.Reset()

	err := errors.Join(errs...)
	sessionTransitionsTotal.WithLabelValues("logout", outcomeLabel(err)).Inc()
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session ended")
	return nil
}

// Current describes the session: mode, email and, when the access token
// is a JWT, its subject and expiry. The token signature is not verified.
func (s *SessionService) Current(ctx context.Context) (*domain.SessionView, error) {
	token, err := s.read(ctx, domain.KeyAccessToken)
	if err != nil {
		return nil, err
	}

	view := &domain.SessionView{Mode: domain.ModeGuest, CartCount: s.container.Count()}
	if token == "" {
		return view, nil
	}

	view.Mode = domain.ModeAuthenticated
	if view.Email, err = s.read(ctx, domain.KeyEmail); err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return view, nil
	}
	if sub, err := claims.GetSubject(); err == nil {
		view.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time.UTC()
		view.ExpiresAt = &t
		view.Expired = s.now().After(t)
	}
	return view, nil
}

func (s *SessionService) read(ctx context.Context, key string) (string, error) {
	v, err := s.identity.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

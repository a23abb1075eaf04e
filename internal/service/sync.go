package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/EcommerceGo/storefront/internal/cart"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// Trigger names the UI moment that asked for a resync.
type Trigger string

const (
	// TriggerMount fires on app start or tab focus; authenticated only.
	TriggerMount Trigger = "mount"
	// TriggerRefresh is the pull-to-refresh gesture; any identity.
	TriggerRefresh Trigger = "refresh"
	// TriggerMerge follows a merge run.
	TriggerMerge Trigger = "merge"
)

// Sync outcomes.
const (
	SyncApplied   = "applied"
	SyncSkipped   = "skipped"
	SyncDiscarded = "discarded"
	SyncFailed    = "failed"
)

// SyncResult reports what a sync did and the cart afterwards.
type SyncResult struct {
	Trigger Trigger         `json:"trigger"`
	Outcome string          `json:"outcome"`
	Cart    domain.CartView `json:"cart"`
}

// SyncService pulls the authoritative cart and replaces local state.
type SyncService struct {
	remote       CartRemote
	identity     repository.IdentityRepository
	container    *cart.Container
	producer     *event.Producer
	logger       *slog.Logger
	discardStale bool
}

// NewSyncService creates a sync service. With discardStale set, a fetch
// is dropped when the container changed while it was in flight.
func NewSyncService(
	remote CartRemote,
	identity repository.IdentityRepository,
	container *cart.Container,
	producer *event.Producer,
	logger *slog.Logger,
	discardStale bool,
) *SyncService {
	return &SyncService{
		remote:       remote,
		identity:     identity,
		container:    container,
		producer:     producer,
		logger:       logger,
		discardStale: discardStale,
	}
}

// Sync fetches the cart and replaces the container with it. On failure
// the container is left untouched; only TriggerRefresh returns the error,
// mount and merge log it and report SyncFailed.
func (s *SyncService) Sync(ctx context.Context, trigger Trigger) (SyncResult, error) {
	res, err := s.sync(ctx, trigger)
	syncRunsTotal.WithLabelValues(string(trigger), res.Outcome).Inc()
	res.Cart = s.container.View()

	if err == nil {
		return res, nil
	}
	if trigger == TriggerRefresh {
		return res, err
	}
	s.logger.WarnContext(ctx, "background cart sync failed",
		slog.String("trigger", string(trigger)),
		slog.String("error", err.Error()),
	)
	return res, nil
}

func (s *SyncService) sync(ctx context.Context, trigger Trigger) (SyncResult, error) {
	res := SyncResult{Trigger: trigger, Outcome: SyncFailed}

	switch trigger {
	case TriggerMount, TriggerRefresh, TriggerMerge:
	default:
		return res, apperrors.InvalidInput(fmt.Sprintf("unknown sync trigger %q", trigger))
	}

	mode, err := s.mode(ctx)
	if err != nil {
		return res, err
	}
	if trigger == TriggerMount && mode != domain.ModeAuthenticated {
		res.Outcome = SyncSkipped
		return res, nil
	}

	gen := s.container.Generation()
	items, err := s.remote.FetchCart(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch cart: %w", err)
	}

	if s.discardStale {
		if !s.container.ReplaceAllIfCurrent(items, gen) {
			s.logger.InfoContext(ctx, "discarded stale cart fetch", slog.String("trigger", string(trigger)))
			res.Outcome = SyncDiscarded
			return res, nil
		}
	} else {
		s.container.ReplaceAll(items)
	}
	res.Outcome = SyncApplied
	cartItems.Set(float64(s.container.Count()))

	if err := s.producer.PublishCartSynced(ctx, string(trigger), mode, s.container.View()); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.synced event", slog.String("error", err.Error()))
	}
	return res, nil
}

func (s *SyncService) mode(ctx context.Context) (domain.IdentityMode, error) {
	token, err := s.identity.Get(ctx, domain.KeyAccessToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.ModeGuest, nil
		}
		return "", fmt.Errorf("read access token: %w", err)
	}
	if token == "" {
		return domain.ModeGuest, nil
	}
	return domain.ModeAuthenticated, nil
}

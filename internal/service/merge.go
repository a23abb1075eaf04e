package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
)

// MergeOutcome is the branch a merge run took.
type MergeOutcome string

const (
	// MergeSkipped: no guest cart, or this token already merged.
	MergeSkipped MergeOutcome = "skipped"
	// MergeDiscarded: the account already owned a cart; the guest cart was dropped.
	MergeDiscarded MergeOutcome = "discarded"
	// MergeMerged: the guest cart was folded into the account.
	MergeMerged MergeOutcome = "merged"
	// MergeFailed: a remote or store call failed; cart_uuid is kept.
	MergeFailed MergeOutcome = "failed"
)

// MergeOrchestrator folds the guest cart into the account once per
// Guest to Authenticated transition.
type MergeOrchestrator struct {
	remote   CartRemote
	identity repository.IdentityRepository
	producer *event.Producer
	logger   *slog.Logger

	mu     sync.Mutex
	merged map[string]struct{}
}

// NewMergeOrchestrator creates a merge orchestrator.
func NewMergeOrchestrator(remote CartRemote, identity repository.IdentityRepository, producer *event.Producer, logger *slog.Logger) *MergeOrchestrator {
	return &MergeOrchestrator{
		remote:   remote,
		identity: identity,
		producer: producer,
		logger:   logger,
		merged:   make(map[string]struct{}),
	}
}

// Run executes the merge for token, which must already be persisted. It
// never returns an error: failures are logged and reported as MergeFailed
// so that login proceeds. A token is merged at most once until Reset.
func (m *MergeOrchestrator) Run(ctx context.Context, token string) MergeOutcome {
	m.mu.Lock()
	if _, done := m.merged[token]; done {
		m.mu.Unlock()
		m.logger.DebugContext(ctx, "merge already ran for this session")
		return MergeSkipped
	}
	m.merged[token] = struct{}{}
	m.mu.Unlock()

	cartUUID, outcome, err := m.run(ctx)
	mergeRunsTotal.WithLabelValues(string(outcome)).Inc()

	if err != nil {
		m.logger.WarnContext(ctx, "guest cart merge failed, keeping cart uuid",
			slog.String("cart_uuid", cartUUID),
			slog.String("error", err.Error()),
		)
	} else {
		m.logger.InfoContext(ctx, "guest cart merge finished",
			slog.String("outcome", string(outcome)),
			slog.String("cart_uuid", cartUUID),
		)
	}

	if outcome != MergeSkipped {
		if err := m.producer.PublishCartMerged(ctx, string(outcome), cartUUID); err != nil {
			m.logger.WarnContext(ctx, "failed to publish cart.merged event", slog.String("error", err.Error()))
		}
	}
	return outcome
}

func (m *MergeOrchestrator) run(ctx context.Context) (string, MergeOutcome, error) {
	cartUUID, err := m.identity.Get(ctx, domain.KeyCartUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", MergeSkipped, nil
		}
		return "", MergeFailed, fmt.Errorf("read cart uuid: %w", err)
	}
	if cartUUID == "" {
		return "", MergeSkipped, nil
	}

	hasCart, err := m.remote.HasUserCart(ctx)
	if err != nil {
		return cartUUID, MergeFailed, fmt.Errorf("check user cart: %w", err)
	}

	outcome := MergeDiscarded
	if !hasCart {
		if err := m.remote.MergeGuestCart(ctx, cartUUID); err != nil {
			return cartUUID, MergeFailed, fmt.Errorf("merge guest cart: %w", err)
		}
		outcome = MergeMerged
	}

	if err := m.identity.Remove(ctx, domain.KeyCartUUID); err != nil {
		return cartUUID, MergeFailed, fmt.Errorf("remove cart uuid: %w", err)
	}
	return cartUUID, outcome, nil
}

// Reset forgets merged tokens so the next login merges again.
func (m *MergeOrchestrator) Reset() {
	m.mu.Lock()
	m.merged = make(map[string]struct{})
	m.mu.Unlock()
}

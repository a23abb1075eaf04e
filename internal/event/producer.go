package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
	"github.com/utafrali/EcommerceGo/storefront/pkg/logger"
)

// Kafka topics for storefront cart activity.
var (
	TopicCartSynced = pkgkafka.Topic("cart", "synced")
	TopicCartMerged = pkgkafka.Topic("cart", "merged")
)

// SourceStorefront identifies events emitted by this core.
const SourceStorefront = "storefront-core"

// CartSyncedData is the payload for a cart.synced event.
type CartSyncedData struct {
	Trigger   string          `json:"trigger"`
	Mode      string          `json:"mode"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartMergedData is the payload for a cart.merged event.
type CartMergedData struct {
	Outcome  string `json:"outcome"`
	CartUUID string `json:"cart_uuid,omitempty"`
}

// Producer publishes cart activity events. A Producer without a Kafka
// producer is disabled and drops every event.
type Producer struct {
	kafka          *pkgkafka.Producer
	installationID string
	logger         *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, installationID string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:          kafka,
		installationID: installationID,
		logger:         logger,
	}
}

// Enabled reports whether events reach a broker.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishCartSynced publishes a cart.synced event.
func (p *Producer) PublishCartSynced(ctx context.Context, trigger string, mode domain.IdentityMode, view domain.CartView) error {
	if !p.Enabled() {
		return nil
	}
	data := CartSyncedData{
		Trigger:   trigger,
		Mode:      string(mode),
		ItemCount: view.Count,
		Total:     view.Total,
	}
	return p.publish(ctx, TopicCartSynced, data, map[string]string{"trigger": trigger})
}

// PublishCartMerged publishes a cart.merged event.
func (p *Producer) PublishCartMerged(ctx context.Context, outcome, cartUUID string) error {
	if !p.Enabled() {
		return nil
	}
	return p.publish(ctx, TopicCartMerged, CartMergedData{Outcome: outcome, CartUUID: cartUUID}, map[string]string{"outcome": outcome})
}

func (p *Producer) publish(ctx context.Context, topic string, data any, metadata map[string]string) error {
	event, err := pkgkafka.NewEvent(topic, p.installationID, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	for k, v := range metadata {
		event.WithMetadata(k, v)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published cart event", slog.String("topic", topic))
	return nil
}

// Close flushes and closes the underlying Kafka producer.
func (p *Producer) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.kafka.Close()
}

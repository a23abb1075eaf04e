package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewEvent_Fields(t *testing.T) {
	data := map[string]int{"item_count": 3}
	event, err := NewEvent("cart.synced", "install-1", "storefront", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "cart.synced", event.EventType)
	assert.Equal(t, "install-1", event.InstallationID)
	assert.Equal(t, 1, event.Version)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var got map[string]int
	require.NoError(t, json.Unmarshal(event.Data, &got))
	assert.Equal(t, 3, got["item_count"])
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("cart.synced", "install-1", "storefront", make(chan int))
	require.Error(t, err)
}

func TestEvent_Builders(t *testing.T) {
	event, err := NewEvent("cart.merged", "install-1", "storefront", nil)
	require.NoError(t, err)

	event.WithCorrelationID("corr-1").WithMetadata("trigger", "merge")
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "merge", event.Metadata["trigger"])

	raw, err := event.Marshal()
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "merge", decoded.Metadata["trigger"])
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.synced", Topic("cart", "synced"))
	assert.Equal(t, "storefront.cart.merged", Topic("cart", "merged"))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.False(t, cfg.Async)
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, err := NewEvent("cart.synced", "install-1", "storefront", map[string]int{"item_count": 2})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), Topic("cart", "synced"), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.synced", msg.Topic)
	assert.Equal(t, "install-1", string(msg.Key))
	assert.Equal(t, "cart.synced", headerValue(msg, "event_type"))
	assert.Equal(t, "corr-9", headerValue(msg, "correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	p := NewProducerWithWriter(w, nil, discardLogger())
	event, err := NewEvent("cart.synced", "install-1", "storefront", nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "t", event))

	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", headerValue(w.msgs[0], "traceparent"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, nil, discardLogger())

	event, err := NewEvent("cart.synced", "install-1", "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.cart.synced", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewProducerWithWriter(w, nil, discardLogger()).Close())
	assert.True(t, w.closed)
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "existing", Value: []byte("v1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "v1", c.Get("existing"))
	assert.Empty(t, c.Get("missing"))

	c.Set("existing", "v2")
	c.Set("new", "v3")
	assert.Equal(t, "v2", c.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new"}, c.Keys())
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

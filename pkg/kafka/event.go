package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for storefront activity messages.
type Event struct {
	EventID        string            `json:"event_id"`
	EventType      string            `json:"event_type"`
	InstallationID string            `json:"installation_id"`
	Version        int               `json:"version"`
	Timestamp      time.Time         `json:"timestamp"`
	Source         string            `json:"source"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	Data           json.RawMessage   `json:"data"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates a new event with a generated ID and current timestamp.
func NewEvent(eventType, installationID, source string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:        uuid.New().String(),
		EventType:      eventType,
		InstallationID: installationID,
		Version:        1,
		Timestamp:      time.Now().UTC(),
		Source:         source,
		Data:           dataBytes,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithMetadata adds a key-value pair to the event metadata.
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// TopicPrefix namespaces every storefront topic.
const TopicPrefix = "storefront"

// Topic returns the standard topic name, e.g. Topic("cart", "synced")
// returns "storefront.cart.synced".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}

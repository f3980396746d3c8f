// Package mq publishes domain events (bookings, payments, property status
// changes) to a message broker and consumes them back.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prostay/apiserver/config"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// EventType names a domain event.
type EventType string

const (
	EventBookingCreated        EventType = "booking.created"
	EventBookingStatusChanged  EventType = "booking.status_changed"
	EventPaymentUpdated        EventType = "payment.updated"
	EventPropertyStatusChanged EventType = "property.status_changed"
)

const attrEventType = "event_type"

// Event is the envelope published for every domain change.
type Event struct {
	Type       EventType       `json:"type"`
	ResourceID int             `json:"resource_id"`
	ActorID    int             `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an event stamped with the current time. data is encoded
// as JSON.
func NewEvent(eventType EventType, resourceID, actorID int, data any) Event {
	event := Event{
		Type:       eventType,
		ResourceID: resourceID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			event.Data = raw
		}
	}
	return event
}

// Bus sends and receives events on a single channel of a backend.
type Bus struct {
	backend Backend
	channel string
	logger  *slog.Logger
}

// New constructs a Bus for the provided backend and channel.
func New(backend Backend, channel string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{backend: backend, channel: channel, logger: logger}
}

// NewFromConfig dials the configured broker. The "none" backend discards
// published events.
func NewFromConfig(ctx context.Context, cfg config.MQConfig, logger *slog.Logger) (*Bus, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		backend = Discard{}
	case "rabbitmq":
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend, cfg.Channel, logger), nil
}

// Publish encodes and sends event.
func (b *Bus) Publish(ctx context.Context, event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return b.backend.Publish(ctx, b.channel, data, map[string]string{attrEventType: string(event.Type)})
}

// Notify publishes event and logs instead of returning a failure. Domain
// writes are already committed when events are sent.
func (b *Bus) Notify(ctx context.Context, event Event) {
	id, err := b.Publish(ctx, event)
	if err != nil {
		b.logger.WarnContext(ctx, "publish event failed", "type", event.Type, "resource_id", event.ResourceID, "error", err)
		return
	}
	b.logger.DebugContext(ctx, "event published", "type", event.Type, "id", id)
}

// Subscribe decodes events from the channel until ctx is done. Messages
// that do not decode are acknowledged and dropped.
func (b *Bus) Subscribe(ctx context.Context, handler func(ctx context.Context, event Event) error) error {
	return b.backend.Subscribe(ctx, b.channel, func(ctx context.Context, msg Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.WarnContext(ctx, "dropping malformed event", "id", msg.ID, "error", err)
			return nil
		}
		return handler(ctx, event)
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}

// Discard is a Backend that drops every message.
type Discard struct{}

func (Discard) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (Discard) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (Discard) Close() error { return nil }

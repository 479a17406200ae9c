// Package events carries local session notifications between the API client,
// the console and the CLI. Delivery is synchronous: Publish returns after
// every subscriber has run.
package events

import (
	"context"
	"time"
)

// Event is a single notification.
type Event interface {
	Type() string
	ID() string
	Timestamp() time.Time
	Metadata() map[string]any
}

// EventHandler reacts to one event. A returned error is reported back to the
// publisher.
type EventHandler func(ctx context.Context, event Event) error

// UnsubscribeFunc removes a subscription. Calling it more than once is a no-op.
type UnsubscribeFunc func() error

// Publisher is what the API client needs: it announces, it never listens.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus fans events out to subscribers by event type.
type EventBus interface {
	Publisher
	Subscribe(eventType string, handler EventHandler) (UnsubscribeFunc, error)
	Close() error
	Health() Health
}

// Health is a snapshot of the bus.
type Health struct {
	Status      string `json:"status"`
	Subscribers int    `json:"subscribers"`
	LastError   string `json:"last_error,omitempty"`
}

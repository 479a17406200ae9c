package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/event"

	"github.com/rawlogin/adminctl/pkg/logger"
)

var errBusClosed = errors.New("event bus is closed")

const (
	payloadKey = "payload"
	contextKey = "context"
)

// bus is an EventBus backed by a private gookit/event manager.
type bus struct {
	manager *event.Manager
	logger  *logger.Logger

	mu        sync.RWMutex
	listeners map[string][]*listener
	lastError string
	closed    bool
}

// listener is registered by pointer so each subscription can be removed on
// its own, even when two subscribers share a handler. Handlers receive the
// publisher's context.
type listener struct {
	handler EventHandler
}

func (l *listener) Handle(e event.Event) error {
	payload, ok := e.Get(payloadKey).(Event)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", e.Get(payloadKey))
	}
	ctx, ok := e.Get(contextKey).(context.Context)
	if !ok {
		ctx = context.Background()
	}
	return l.handler(ctx, payload)
}

// NewEventBus returns an empty bus. log may be nil.
func NewEventBus(log *logger.Logger) EventBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &bus{
		manager:   event.NewManager("adminctl"),
		logger:    log.WithComponent("events"),
		listeners: make(map[string][]*listener),
	}
}

func (b *bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return errBusClosed
	}

	log := b.logger.WithContext(ctx)
	log.Debug("publishing event", slog.String("type", e.Type()), slog.String("id", e.ID()))

	if err, _ := b.manager.Fire(e.Type(), event.M{payloadKey: e, contextKey: ctx}); err != nil {
		b.mu.Lock()
		b.lastError = err.Error()
		b.mu.Unlock()

		log.ErrorCtx(ctx, "event handler failed", err, slog.String("type", e.Type()))
		return fmt.Errorf("failed to publish %s: %w", e.Type(), err)
	}
	return nil
}

func (b *bus) Subscribe(eventType string, handler EventHandler) (UnsubscribeFunc, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBusClosed
	}

	l := &listener{handler: handler}
	b.manager.On(eventType, l, event.Normal)
	b.listeners[eventType] = append(b.listeners[eventType], l)
	b.logger.Debug("subscribed", slog.String("type", eventType))

	var once sync.Once
	return func() error {
		once.Do(func() { b.remove(eventType, l) })
		return nil
	}, nil
}

func (b *bus) remove(eventType string, l *listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.listeners[eventType][:0]
	for _, other := range b.listeners[eventType] {
		if other != l {
			kept = append(kept, other)
		}
	}
	if len(kept) == 0 {
		delete(b.listeners, eventType)
	} else {
		b.listeners[eventType] = kept
	}

	if !b.closed {
		b.manager.RemoveListener(eventType, l)
	}
}

// Close drops every subscription. Publishing afterwards fails.
func (b *bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.manager.Clear()
		b.listeners = make(map[string][]*listener)
		b.closed = true
	}
	return nil
}

// Health reports "unhealthy" once closed and "degraded" after any handler error.
func (b *bus) Health() Health {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h := Health{Status: "healthy", LastError: b.lastError}
	for _, ls := range b.listeners {
		h.Subscribers += len(ls)
	}
	switch {
	case b.closed:
		h.Status = "unhealthy"
	case b.lastError != "":
		h.Status = "degraded"
	}
	return h
}

// BaseEvent carries the fields every event shares.
type BaseEvent struct {
	id        string
	eventType string
	timestamp time.Time
	metadata  map[string]any
}

// NewBaseEvent stamps a new event with a random id and the current time.
func NewBaseEvent(eventType string, metadata map[string]any) *BaseEvent {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &BaseEvent{
		id:        uuid.NewString(),
		eventType: eventType,
		timestamp: time.Now(),
		metadata:  metadata,
	}
}

func (e *BaseEvent) Type() string             { return e.eventType }
func (e *BaseEvent) ID() string               { return e.id }
func (e *BaseEvent) Timestamp() time.Time     { return e.timestamp }
func (e *BaseEvent) Metadata() map[string]any { return e.metadata }

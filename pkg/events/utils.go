package events

import (
	"context"
	"fmt"
)

// Typed adapts a handler for one concrete event type. Events of any other
// type are rejected with an error.
func Typed[T Event](handler func(ctx context.Context, event T) error) EventHandler {
	return func(ctx context.Context, e Event) error {
		typed, ok := e.(T)
		if !ok {
			var want T
			return fmt.Errorf("expected event %T, got %T", want, e)
		}
		return handler(ctx, typed)
	}
}

// OnSessionExpired subscribes fn to session expiry notifications.
func OnSessionExpired(bus EventBus, fn func(ctx context.Context, event *SessionEvent)) (UnsubscribeFunc, error) {
	return bus.Subscribe(TypeSessionExpired, Typed(func(ctx context.Context, event *SessionEvent) error {
		fn(ctx, event)
		return nil
	}))
}

// Package eventbus provides event-driven communication infrastructure for
// the series engine.
package eventbus

import (
	"context"

	"github.com/talkbase/series/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

// EventBus carries engine lifecycle events.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// VisitorEventHandler is called for each inbound visitor event.
type VisitorEventHandler func(ctx context.Context, event *events.VisitorEvent) error

// VisitorEventBus carries inbound visitor stimuli on their own topic.
type VisitorEventBus interface {
	PublishVisitorEvent(ctx context.Context, event *events.VisitorEvent) error
	HandleVisitorEvents(handler VisitorEventHandler) error
	SubscribeToVisitorEvents(ctx context.Context) error
	Close() error
}

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/talkbase/series/pkg/events"
)

// WatermillVisitorEventBus carries inbound visitor events on their own topic
// so the worker's subscription is independent of engine lifecycle events.
type WatermillVisitorEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handler    VisitorEventHandler
}

func NewWatermillVisitorEventBus(pub message.Publisher, sub message.Subscriber) *WatermillVisitorEventBus {
	return &WatermillVisitorEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillVisitorEventBus) PublishVisitorEvent(ctx context.Context, event *events.VisitorEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, event.WorkspaceID+":"+event.VisitorID)

	return eb.publisher.Publish(events.VisitorEventTopic, msg)
}

func (eb *WatermillVisitorEventBus) HandleVisitorEvents(handler VisitorEventHandler) error {
	eb.handler = handler

	return nil
}

func (eb *WatermillVisitorEventBus) SubscribeToVisitorEvents(ctx context.Context) error {
	if eb.handler == nil {
		return fmt.Errorf("no visitor event handler registered")
	}

	messages, err := eb.subscriber.Subscribe(ctx, events.VisitorEventTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var event events.VisitorEvent

			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				msg.Nack()

				continue
			}

			if err := eb.handler(ctx, &event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillVisitorEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}

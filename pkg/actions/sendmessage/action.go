// Package sendmessage provides the action that asks the delivery transport
// to send a message to a visitor. The engine never renders or delivers the
// message itself; it only publishes a message.requested event keyed by the
// visitor.
package sendmessage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/events"
)

type SendMessageAction struct {
	publisher eventbus.EventPublisher
	messageID string
	channel   string
	variables map[string]any
}

func NewSendMessageAction(publisher eventbus.EventPublisher, config map[string]any) (*SendMessageAction, error) {
	messageID, _ := config["message_id"].(string)
	if messageID == "" {
		return nil, fmt.Errorf("send_message action requires a message_id")
	}

	channel, _ := config["channel"].(string)
	variables, _ := config["variables"].(map[string]any)

	return &SendMessageAction{
		publisher: publisher,
		messageID: messageID,
		channel:   channel,
		variables: variables,
	}, nil
}

func (a *SendMessageAction) Execute(ctx context.Context, visitorID string, _ map[string]any, logger *slog.Logger) error {
	logger = logger.With("action_type", "send_message", "visitor_id", visitorID, "message_id", a.messageID)

	event := events.MessageRequested{
		BaseEvent: events.NewBaseEvent(events.MessageRequestedEvent, ""),
		VisitorID: visitorID,
		MessageID: a.messageID,
		Channel:   a.channel,
		Variables: a.variables,
	}

	if err := a.publisher.Publish(ctx, visitorID, event); err != nil {
		return fmt.Errorf("failed to request message delivery: %w", err)
	}

	logger.InfoContext(ctx, "Message delivery requested")

	return nil
}

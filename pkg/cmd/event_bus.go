package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/talkbase/series/pkg/channels/gochannel"
	"github.com/talkbase/series/pkg/channels/kafka"
	"github.com/talkbase/series/pkg/eventbus"
)

// NewEventBus builds the engine event bus for the given provider. The
// gochannel provider is in-process only and exists for development and
// single-node deployments.
func NewEventBus(provider, serviceName string, logger *slog.Logger) eventbus.EventBus {
	pub, sub := newChannel(provider, serviceName, logger)

	return eventbus.NewWatermillEventBus(pub, sub)
}

// NewVisitorEventBus builds the bus carrying inbound visitor stimuli.
func NewVisitorEventBus(provider, serviceName string, logger *slog.Logger) eventbus.VisitorEventBus {
	pub, sub := newChannel(provider, serviceName, logger)

	return eventbus.NewWatermillVisitorEventBus(pub, sub)
}

func newChannel(provider, serviceName string, logger *slog.Logger) (message.Publisher, message.Subscriber) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return pub, sub
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create gochannel pub/sub: %w", err))
		}

		return pub, sub
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

package cmd

import (
	"log/slog"

	"github.com/talkbase/series/pkg/actions/logaction"
	"github.com/talkbase/series/pkg/actions/sendmessage"
	"github.com/talkbase/series/pkg/actions/tag"
	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/registry"
)

// NewRegistry builds the action registry with the native action executors.
func NewRegistry(logger *slog.Logger, publisher eventbus.EventPublisher) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(logaction.NewLogActionFactory())
	reg.RegisterAction(tag.NewTagActionFactory())
	reg.RegisterAction(sendmessage.NewSendMessageActionFactory(publisher))

	return reg
}

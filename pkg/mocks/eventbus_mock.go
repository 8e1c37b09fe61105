// Package mocks provides testify mocks for the engine's collaborator
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/events"
)

// MockEventBus is a mock implementation of eventbus.EventBus.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// MockVisitorEventBus is a mock implementation of eventbus.VisitorEventBus.
type MockVisitorEventBus struct {
	mock.Mock
}

func (m *MockVisitorEventBus) PublishVisitorEvent(ctx context.Context, event *events.VisitorEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *MockVisitorEventBus) HandleVisitorEvents(handler eventbus.VisitorEventHandler) error {
	args := m.Called(handler)

	return args.Error(0)
}

func (m *MockVisitorEventBus) SubscribeToVisitorEvents(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockVisitorEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

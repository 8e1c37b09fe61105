package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/talkbase/series/pkg/models"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) SeriesByID(ctx context.Context, id string) (*models.Series, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Series), args.Error(1)
}

func (m *MockPersistence) ActiveSeriesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Series, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Series), args.Error(1)
}

func (m *MockPersistence) SaveSeries(ctx context.Context, series *models.Series) error {
	args := m.Called(ctx, series)

	return args.Error(0)
}

func (m *MockPersistence) DeleteSeries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) CreateProgress(ctx context.Context, progress *models.SeriesProgress) error {
	args := m.Called(ctx, progress)

	return args.Error(0)
}

func (m *MockPersistence) ProgressByID(ctx context.Context, id string) (*models.SeriesProgress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) CurrentProgress(ctx context.Context, visitorID, seriesID string) (*models.SeriesProgress, error) {
	args := m.Called(ctx, visitorID, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) ProgressByVisitor(ctx context.Context, workspaceID, visitorID string) ([]*models.SeriesProgress, error) {
	args := m.Called(ctx, workspaceID, visitorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) FailedProgressBySeries(ctx context.Context, seriesID string, limit int) ([]*models.SeriesProgress, error) {
	args := m.Called(ctx, seriesID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) SaveProgress(ctx context.Context, progress *models.SeriesProgress) error {
	args := m.Called(ctx, progress)

	return args.Error(0)
}

func (m *MockPersistence) ClaimWaiting(ctx context.Context, id string) (*models.SeriesProgress, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) WaitingForEvent(ctx context.Context, workspaceID, visitorID, eventName string) ([]*models.SeriesProgress, error) {
	args := m.Called(ctx, workspaceID, visitorID, eventName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) DueProgress(ctx context.Context, now time.Time, seriesLimit, waitingLimit int) ([]*models.SeriesProgress, error) {
	args := m.Called(ctx, now, seriesLimit, waitingLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) StalledProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.SeriesProgress, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.SeriesProgress), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

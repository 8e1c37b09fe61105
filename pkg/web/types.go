// Package web provides the HTTP surface of the series engine: definition
// management, progress inspection, and visitor event ingestion.
package web

import "github.com/talkbase/series/pkg/models"

// CreateSeriesRequest is the body for creating a new series definition. New
// series always start as drafts.
type CreateSeriesRequest struct {
	WorkspaceID  string                `json:"workspace_id"   validate:"required"`
	Name         string                `json:"name"           validate:"required,min=3"`
	Entry        models.EntryCondition `json:"entry"          validate:"required"`
	EntryBlockID string                `json:"entry_block_id"`
	Blocks       []*models.SeriesBlock `json:"blocks"`
}

// UpdateSeriesRequest replaces the graph and metadata of an existing series.
type UpdateSeriesRequest struct {
	Name         string                `json:"name"           validate:"required,min=3"`
	Entry        models.EntryCondition `json:"entry"          validate:"required"`
	EntryBlockID string                `json:"entry_block_id"`
	Blocks       []*models.SeriesBlock `json:"blocks"`
}

// ChangeSeriesStatusRequest moves a series through its definition lifecycle.
type ChangeSeriesStatusRequest struct {
	Status models.SeriesStatus `json:"status" validate:"required,oneof=draft active paused archived"`
}

// IngestEventRequest is the body for pushing one visitor stimulus through
// the HTTP surface instead of the event bus.
type IngestEventRequest struct {
	WorkspaceID string                `json:"workspace_id" validate:"required"`
	VisitorID   string                `json:"visitor_id"   validate:"required"`
	Trigger     models.TriggerContext `json:"trigger"      validate:"required"`
}

func (r CreateSeriesRequest) toModel() *models.Series {
	return &models.Series{
		WorkspaceID:  r.WorkspaceID,
		Name:         r.Name,
		Entry:        r.Entry,
		EntryBlockID: r.EntryBlockID,
		Blocks:       r.Blocks,
	}
}

func (r UpdateSeriesRequest) toModel() *models.Series {
	return &models.Series{
		Name:         r.Name,
		Entry:        r.Entry,
		EntryBlockID: r.EntryBlockID,
		Blocks:       r.Blocks,
	}
}

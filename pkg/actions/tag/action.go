// Package tag provides the action that adds or removes a tag on the visitor
// profile by calling the profile service.
package tag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

type TagAction struct {
	tag       string
	endpoint  string
	operation string
	client    *http.Client
}

func NewTagAction(config map[string]any) (*TagAction, error) {
	tagName, _ := config["tag"].(string)
	if tagName == "" {
		return nil, fmt.Errorf("tag action requires a tag")
	}

	endpoint, _ := config["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("tag action requires an endpoint")
	}

	operation, _ := config["operation"].(string)
	if operation == "" {
		operation = "add"
	}

	return &TagAction{
		tag:       tagName,
		endpoint:  endpoint,
		operation: operation,
		client:    &http.Client{Timeout: defaultTimeout},
	}, nil
}

type tagRequest struct {
	VisitorID string `json:"visitor_id"`
	Tag       string `json:"tag"`
	Operation string `json:"operation"`
}

func (a *TagAction) Execute(ctx context.Context, visitorID string, _ map[string]any, logger *slog.Logger) error {
	logger = logger.With("action_type", "tag", "visitor_id", visitorID, "tag", a.tag)

	payload, err := json.Marshal(tagRequest{
		VisitorID: visitorID,
		Tag:       a.tag,
		Operation: a.operation,
	})
	if err != nil {
		return fmt.Errorf("failed to encode tag request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create tag request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("tag request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("profile service returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Visitor tag updated", "operation", a.operation)

	return nil
}

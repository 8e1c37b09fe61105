// Package queue provides a Redis list receiver for inbound visitor events,
// for deployments that push stimuli through Redis instead of Kafka.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/talkbase/series/pkg/events"
	"github.com/talkbase/series/pkg/protocol"
)

type Receiver struct {
	Connection map[string]string
	Queue      string
	Enabled    bool

	client  redis.UniversalClient
	handler protocol.VisitorEventHandler
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewReceiver(ctx context.Context, config map[string]any, logger *slog.Logger) (*Receiver, error) {
	queue, _ := config["queue"].(string)

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)
	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	receiver := &Receiver{
		Connection: connection,
		Queue:      queue,
		Enabled:    true,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_receiver",
			"queue", queue,
		),
	}

	if err := receiver.Validate(ctx); err != nil {
		return nil, err
	}

	return receiver, nil
}

func (r *Receiver) Validate(_ context.Context) error {
	if r.Queue == "" {
		return errors.New("queue receiver queue name is required")
	}

	return nil
}

func (r *Receiver) Start(ctx context.Context, handler protocol.VisitorEventHandler) error {
	if !r.Enabled {
		r.logger.InfoContext(ctx, "Queue receiver is disabled.")

		return nil
	}

	r.logger.InfoContext(ctx, "Starting queue receiver")
	r.handler = handler

	if err := r.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) initializeClient(ctx context.Context) error {
	addr := r.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	password := r.Connection["password"]

	db := 0
	if dbStr := r.Connection["db"]; dbStr != "" {
		var err error
		if db, err = strconv.Atoi(dbStr); err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
	}

	r.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	r.logger.InfoContext(ctx, "Starting queue consumer", "queue", r.Queue)

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := r.processMessage(ctx); err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var event events.VisitorEvent
	if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
		return fmt.Errorf("malformed visitor event: %w", err)
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid visitor event: %w", err)
	}

	if err := r.handler(ctx, event.WorkspaceID, event.VisitorID, event.Trigger); err != nil {
		r.logger.ErrorContext(ctx, "Error handling visitor event",
			"workspace_id", event.WorkspaceID,
			"visitor_id", event.VisitorID,
			"error", err)
	}

	return nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
	"github.com/vgs-ops/shift-ops-api/pkg/jobs"
)

// Sender delivers one notification to its recipient. Implementations wrap a
// concrete channel (push gateway, SMS broker, log fallback).
type Sender interface {
	Send(ctx context.Context, event models.NotificationEvent) error
}

// Dispatcher decouples schedule mutations from notification delivery: events
// are enqueued onto an in-memory worker queue and sent asynchronously with
// retries. A full buffer drops the event with a log line rather than
// blocking the mutation path.
type Dispatcher struct {
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewDispatcher constructs a dispatcher backed by the given sender.
func NewDispatcher(cfg config.NotificationsConfig, sender Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.NotificationEvent)
		if !ok {
			return fmt.Errorf("notification job %s carries unexpected payload %T", job.ID, job.Payload)
		}
		return sender.Send(ctx, event)
	}
	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &Dispatcher{queue: queue, enabled: cfg.Enabled, logger: logger}
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.enabled {
		d.logger.Info("notification dispatch disabled")
		return
	}
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	if !d.enabled {
		return
	}
	d.queue.Stop()
}

// Dispatch enqueues one event for asynchronous delivery. Never blocks the
// caller; failures are logged and the schedule mutation proceeds.
func (d *Dispatcher) Dispatch(event models.NotificationEvent) {
	if !d.enabled {
		return
	}
	if event.Priority == "" {
		event.Priority = models.NotificationPriorityNormal
	}
	err := d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    event.Action,
		Payload: event,
	})
	if err != nil {
		d.logger.Warn("notification dropped",
			zap.String("action", event.Action),
			zap.String("recipient_id", event.RecipientID),
			zap.Error(err))
	}
}

// LogSender writes notifications to the structured log. Used in development
// and as the fallback when no delivery channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, event models.NotificationEvent) error {
	s.logger.Info("notification",
		zap.String("recipient_id", event.RecipientID),
		zap.String("recipient_type", event.RecipientType),
		zap.String("action", event.Action),
		zap.String("title", event.Title),
		zap.String("priority", string(event.Priority)),
		zap.Any("metadata", event.Metadata))
	return nil
}

// Package service holds the allocation logic that sits between the HTTP
// handlers and the repositories: slot reconciliation, operation activation,
// catalog import and seeding, presentation groupings and event publishing.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ckfr/ops-allocation/internal/metrics"
	q "github.com/ckfr/ops-allocation/internal/queue"
)

// Publisher hands allocation events to the message broker.  Callers treat
// publishing as best effort: a failure is logged and never undoes the
// database change that triggered it.
type Publisher interface {
	PublishSlotUpdated(ctx context.Context, ev q.SlotUpdatedEvent) error
	PublishOperationActivated(ctx context.Context, ev q.OperationActivatedEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) PublishSlotUpdated(context.Context, q.SlotUpdatedEvent) error { return nil }
func (NopPublisher) PublishOperationActivated(context.Context, q.OperationActivatedEvent) error {
	return nil
}

// AMQPPublisher publishes events to RabbitMQ, one durable queue per event
// type.  A connection is opened per publish; event volume is a handful per
// planning session.
type AMQPPublisher struct {
	URL string
	Log *slog.Logger
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPPublisher{URL: url, Log: log.With("component", "publisher")}
}

func (p *AMQPPublisher) PublishSlotUpdated(ctx context.Context, ev q.SlotUpdatedEvent) error {
	return p.publish(ctx, q.SlotUpdatedQueue, ev)
}

func (p *AMQPPublisher) PublishOperationActivated(ctx context.Context, ev q.OperationActivatedEvent) error {
	return p.publish(ctx, q.OperationActivatedQueue, ev)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, event any) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			p.Log.Warn("publish failed", "queue", queue, "err", err)
		}
		metrics.EventsPublished.WithLabelValues(queue, result).Inc()
	}()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

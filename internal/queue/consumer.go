// Package queue contains the background consumer that listens to the
// allocation queues and appends one line per event to allocation.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the file written inside the consumer's log directory.
const LogFileName = "allocation.log"

// Consumer drains the allocation queues into a log file.
type Consumer struct {
	URL    string
	LogDir string
	Log    *slog.Logger
}

// NewConsumer builds a Consumer.  An empty logDir means "logs".
func NewConsumer(url, logDir string, log *slog.Logger) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{URL: url, LogDir: logDir, Log: log.With("component", "allocation-consumer")}
}

// Run connects to RabbitMQ, declares both allocation queues (durable) and
// consumes them until ctx is cancelled.  Broker failures are retried with
// exponential backoff; a message that cannot be handled is rejected without
// requeue so the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("dial broker failed", "err", err, "retry_in", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("consume loop ended; reconnecting", "err", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("set QoS failed", "err", err)
	}

	deliveries := make(map[string]<-chan amqp.Delivery, 2)
	for _, q := range []string{SlotUpdatedQueue, OperationActivatedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		deliveries[q] = msgs
	}

	slots, ops := deliveries[SlotUpdatedQueue], deliveries[OperationActivatedQueue]
	for {
		var (
			d     amqp.Delivery
			ok    bool
			queue string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-slots:
			queue = SlotUpdatedQueue
		case d, ok = <-ops:
			queue = OperationActivatedQueue
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(queue, d.Body); err != nil {
			c.Log.Error("handle message failed", "queue", queue, "err", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

// Handle decodes one message from queue and appends its log line.
func (c *Consumer) Handle(queue string, body []byte) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders a message as a single human-friendly log line ending
// in a newline.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case SlotUpdatedQueue:
		var ev SlotUpdatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		user := "-"
		if ev.UserID != nil {
			user = fmt.Sprintf("%d", *ev.UserID)
			if ev.Username != "" {
				user = fmt.Sprintf("%d(%s)", *ev.UserID, ev.Username)
			}
		}
		return fmt.Sprintf("[%s] Slot updated | slot_id=%d | ship=%q | role=%q | index=%d | user=%s | status=%s | by=%d\n",
			ev.UpdatedAt, ev.SlotID, ev.ShipName, ev.RoleName, ev.Index, user, ev.Status, ev.UpdatedBy), nil
	case OperationActivatedQueue:
		var ev OperationActivatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Operation activated | operation_id=%d | title=%q | demoted_id=%d | by=%d\n",
			ev.ActivatedAt, ev.OperationID, ev.Title, ev.DemotedID, ev.ActivatedBy), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

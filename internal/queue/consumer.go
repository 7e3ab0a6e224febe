package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/flight-booking/internal/logger"
)

// Consumer drains the notification queue and delivers each message by
// appending it to a mail log file.
type Consumer struct {
	url     string
	queue   string
	mailLog string
	log     logger.Logger
}

func NewConsumer(url, queue, mailLog string, log logger.Logger) *Consumer {
	if url == "" {
		url = DefaultURL
	}
	return &Consumer{url: url, queue: queue, mailLog: mailLog, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) when the broker
// goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("mail consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
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
		c.log.Warn("mail consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
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
		c.log.Warn("mail consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(d.Body); err != nil {
				c.log.Error("mail consumer: handle message failed", "message_id", d.MessageId, "error", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one NotificationEvent and appends it to the mail log.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.To == "" {
		return errors.New("notification has no recipient")
	}
	if err := os.MkdirAll(filepath.Dir(c.mailLog), 0o755); err != nil {
		return fmt.Errorf("mkdir mail log dir: %w", err)
	}
	f, err := os.OpenFile(c.mailLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] id=%s to=%s subject=%q\n", ev.QueuedAt.UTC().Format(time.RFC3339), ev.ID, ev.To, ev.Subject)
	for _, line := range strings.Split(strings.TrimRight(ev.Text, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}

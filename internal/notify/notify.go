// Package notify implements the fire-and-forget notification collaborator.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/flight-booking/internal/queue"
)

// Notifier sends one email.  Callers treat failures as non-fatal.
type Notifier interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// QueueNotifier hands emails to the broker; delivery happens in the
// mail consumer.
type QueueNotifier struct {
	pub EventPublisher
	now func() time.Time
}

func NewQueueNotifier(pub EventPublisher) *QueueNotifier {
	return &QueueNotifier{pub: pub, now: time.Now}
}

func (n *QueueNotifier) Send(ctx context.Context, to, subject, html, text string) error {
	return n.pub.Publish(ctx, queue.NotificationEvent{
		ID:       uuid.NewString(),
		To:       to,
		Subject:  subject,
		HTML:     html,
		Text:     text,
		QueuedAt: n.now().UTC(),
	})
}

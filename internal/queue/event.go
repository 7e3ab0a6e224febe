// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import "time"

// NotificationEvent is one outbound email.  It carries the rendered bodies
// so the consumer never needs to query the primary database.
type NotificationEvent struct {
	ID       string    `json:"id"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	Text     string    `json:"text"`
	QueuedAt time.Time `json:"queued_at"`
}

// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/user-service/internal/mail"

// MailQueueName is the durable queue carrying outbound emails.
const MailQueueName = "mail.outbound"

// MailRequestedEvent is published whenever the service wants an email sent.
// It carries the fully rendered message so the consumer needs no access to
// the account store.
type MailRequestedEvent struct {
	Message     mail.Message `json:"message"`
	RequestedAt string       `json:"requested_at"`
}

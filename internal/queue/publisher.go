package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/user-service/internal/mail"
)

// Publisher is a mail.Sender that hands messages to RabbitMQ instead of
// delivering them. A nil error means the broker accepted the message, not
// that it reached the recipient.
type Publisher struct {
	URL string
	now func() time.Time
}

func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, now: time.Now}
}

// Send publishes msg to the mail.outbound queue as a persistent message.
// Both the broker dial and the publish are bounded by ctx.
func (p *Publisher) Send(ctx context.Context, msg mail.Message) error {
	conn, err := dial(ctx, p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		return err
	}

	pub, err := p.publishing(msg)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",            // default exchange
		MailQueueName, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *Publisher) publishing(msg mail.Message) (amqp.Publishing, error) {
	now := p.now().UTC()
	body, err := json.Marshal(MailRequestedEvent{Message: msg, RequestedAt: now.Format(time.RFC3339)})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal mail event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    now,
		Body:         body,
	}, nil
}

// declare ensures the queue exists (idempotent). Durable so messages survive broker restarts.
func declare(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(MailQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/user-service/internal/mail"
)

// StartMailConsumer connects to RabbitMQ, declares the mail.outbound queue
// and delivers every message through sender. It reconnects with backoff
// until ctx is cancelled, which is the only way it returns.
func StartMailConsumer(ctx context.Context, url string, sender mail.Sender, timeout time.Duration, log *slog.Logger) error {
	backoff := time.Second
	for {
		conn, err := dial(ctx, url)
		if err != nil {
			log.Warn("mail-consumer: failed to dial broker", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, sender, timeout, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("mail-consumer: consume loop ended; reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sender mail.Sender, timeout time.Duration, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Warn("mail-consumer: set QoS failed", "err", err)
	}
	if err := declare(ch); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, MailQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		handleDelivery(ctx, d, sender, timeout, log)
	}
	return errors.New("deliveries channel closed")
}

// handleDelivery sends one queued message. Undecodable payloads are dropped;
// a failed send is requeued once and dropped on its second failure.
func handleDelivery(ctx context.Context, d amqp.Delivery, sender mail.Sender, timeout time.Duration, log *slog.Logger) {
	var ev MailRequestedEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Message.To == "" {
		log.Error("mail-consumer: dropping malformed message", "err", err)
		_ = d.Nack(false, false)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sender.Send(sendCtx, ev.Message); err != nil {
		requeue := !d.Redelivered
		log.Error("mail-consumer: delivery failed", "err", err, "to", ev.Message.To, "requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
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

package queue

import (
	"context"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	handshakeTimeout = 30 * time.Second
	heartbeat        = 10 * time.Second
)

// dial connects to the broker with the TCP connect and the AMQP handshake
// bounded by ctx. Without a ctx deadline the handshake is capped at
// handshakeTimeout. The library clears the socket deadline once the
// handshake completes.
func dial(ctx context.Context, url string) (*amqp.Connection, error) {
	stop := func() bool { return false }
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			var d net.Dialer
			c, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			deadline := time.Now().Add(handshakeTimeout)
			if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
				deadline = dl
			}
			if err := c.SetDeadline(deadline); err != nil {
				_ = c.Close()
				return nil, err
			}
			// cancellation mid-handshake unblocks the pending read
			stop = context.AfterFunc(ctx, func() { _ = c.SetDeadline(time.Now()) })
			return c, nil
		},
	})
	stop()
	return conn, err
}

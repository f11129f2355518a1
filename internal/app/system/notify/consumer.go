package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandleFunc processes one delivery.
type HandleFunc func(ctx context.Context, key string, body []byte) error

// Consumer reads from a durable queue bound to the notification exchange.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	q      string
	logger *zap.Logger
}

// NewConsumer dials url and makes sure exchange and queue exist and are
// bound for each key.
func NewConsumer(url, exchange, queue string, keys []string, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(qd.Name, key, exchange, false, nil); err != nil {
			return fail("bind queue", err)
		}
	}

	return &Consumer{conn: conn, ch: ch, q: qd.Name, logger: logger}, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// ErrDeliveriesClosed is returned by Consume when the broker closes the
// delivery channel before ctx is cancelled.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Consume runs workers goroutines until ctx is cancelled or the broker closes
// the delivery channel. Failed deliveries are requeued unless the handler
// reports ErrPermanent.
func (c *Consumer) Consume(ctx context.Context, workers int, handle HandleFunc) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}

	if err := c.ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	return c.deliver(ctx, msgs, workers, handle)
}

func (c *Consumer) deliver(ctx context.Context, msgs <-chan amqp.Delivery, workers int, handle HandleFunc) error {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-msgs:
					if !ok {
						return
					}
					c.dispatch(ctx, d, handle)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return ErrDeliveriesClosed
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle HandleFunc) {
	err := handle(ctx, d.RoutingKey, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrPermanent):
		c.logger.Warn("dropping notification",
			zap.String("key", d.RoutingKey),
			zap.String("message_id", d.MessageId),
			zap.Error(err))
		_ = d.Nack(false, false)
	default:
		c.logger.Warn("notification failed, requeueing",
			zap.String("key", d.RoutingKey),
			zap.String("message_id", d.MessageId),
			zap.Error(err))
		_ = d.Nack(false, true)
	}
}

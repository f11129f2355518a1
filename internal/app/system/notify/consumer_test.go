package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type ackRecorder struct {
	mu      sync.Mutex
	acks    int
	requeue int
	dropped int
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeue++
	} else {
		a.dropped++
	}
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func runDeliver(t *testing.T, ctx context.Context, msgs <-chan amqp.Delivery, handle HandleFunc) error {
	t.Helper()
	c := &Consumer{logger: zap.NewNop()}
	errc := make(chan error, 1)
	go func() { errc <- c.deliver(ctx, msgs, 3, handle) }()

	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("deliver did not return")
		return nil
	}
}

func TestDeliver_ReturnsWhenChannelCloses(t *testing.T) {
	acks := &ackRecorder{}
	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acks, RoutingKey: "ok"}
	msgs <- amqp.Delivery{Acknowledger: acks, RoutingKey: "retry"}
	msgs <- amqp.Delivery{Acknowledger: acks, RoutingKey: "drop"}
	close(msgs)

	handle := func(_ context.Context, key string, _ []byte) error {
		switch key {
		case "retry":
			return errors.New("smtp down")
		case "drop":
			return ErrPermanent
		}
		return nil
	}

	err := runDeliver(t, context.Background(), msgs, handle)
	if !errors.Is(err, ErrDeliveriesClosed) {
		t.Fatalf("err = %v, want ErrDeliveriesClosed", err)
	}

	acks.mu.Lock()
	defer acks.mu.Unlock()
	if acks.acks != 1 || acks.requeue != 1 || acks.dropped != 1 {
		t.Errorf("acks=%d requeue=%d dropped=%d, want 1 each", acks.acks, acks.requeue, acks.dropped)
	}
}

func TestDeliver_ReturnsNilOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)
	cancel()

	if err := runDeliver(t, ctx, msgs, func(context.Context, string, []byte) error { return nil }); err != nil {
		t.Errorf("err = %v, want nil after cancel", err)
	}
}

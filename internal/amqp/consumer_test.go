package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type fakeAcknowledger struct {
	acked, nacked []uint64
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	f.nacked = append(f.nacked, tag)
	return nil
}

func TestConsumeLoopAcksAndNacks(t *testing.T) {
	ack := &fakeAcknowledger{}
	deliveries := make(chan amqp091.Delivery, 3)

	good, _ := NewEvent(TransactionCreated, 7).ToJSON()
	failing, _ := NewEvent(CategoryDeleted, 99).ToJSON()
	deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: good}
	deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("not json")}
	deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: failing}
	close(deliveries)

	var seen []Event
	err := consumeLoop(context.Background(), deliveries, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		if e.ID == 99 {
			return errors.New("sheets down")
		}
		return nil
	})
	if err == nil || err.Error() != "delivery channel closed" {
		t.Fatalf("unexpected error %v", err)
	}

	if len(seen) != 2 || seen[0].Type != TransactionCreated || seen[0].ID != 7 {
		t.Fatalf("unexpected events %+v", seen)
	}
	if len(ack.acked) != 1 || ack.acked[0] != 1 {
		t.Fatalf("acked %v", ack.acked)
	}
	if len(ack.nacked) != 2 || ack.nacked[0] != 2 || ack.nacked[1] != 3 {
		t.Fatalf("nacked %v", ack.nacked)
	}
}

func TestConsumeLoopStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp091.Delivery)

	errc := make(chan error, 1)
	go func() {
		errc <- consumeLoop(ctx, deliveries, func(context.Context, Event) error { return nil })
	}()
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumeLoop did not return")
	}
}

func TestCloseConsumerWithoutConnection(t *testing.T) {
	if err := (&Consumer{}).Close(); err != nil {
		t.Fatal(err)
	}
}

package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp091.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishUsesEventTypeAsRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch, exchangeName: "finance"}

	e := NewEvent(TransactionCreated, 42)
	if err := c.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ch.exchange != "finance" || ch.key != "transaction.created" {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp091.Persistent {
		t.Fatalf("unexpected publishing: %+v", ch.msg)
	}

	got, err := EventFromJSON(ch.msg.Body)
	if err != nil {
		t.Fatalf("EventFromJSON: %v", err)
	}
	if got.Type != TransactionCreated || got.ID != 42 || !got.Timestamp.Equal(e.Timestamp) {
		t.Fatalf("decoded event = %+v", got)
	}
}

func TestPublishWrapsChannelErrors(t *testing.T) {
	boom := errors.New("channel closed")
	c := &Client{channel: &fakeChannel{err: boom}, exchangeName: "finance"}
	if err := c.Publish(context.Background(), NewEvent(CategoryDeleted, 1)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestEventJSONFieldNames(t *testing.T) {
	e := Event{Type: CategoryUpdated, ID: 3, Timestamp: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)}
	b, err := e.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"event":"category.updated","id":3,"timestamp":"2025-09-01T10:00:00Z"}`
	if string(b) != want {
		t.Fatalf("ToJSON = %s, want %s", b, want)
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch}
	if err := c.Close(); err != nil || !ch.closed {
		t.Fatalf("Close = %v, closed = %v", err, ch.closed)
	}
}

package services

import (
	"context"

	"finance/internal/amqp"
	applog "finance/internal/log"
)

// EventPublisher announces committed writes. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, e amqp.Event) error
}

// publish never fails the caller: the write is already committed.
func publish(ctx context.Context, p EventPublisher, t amqp.EventType, id int64) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, amqp.NewEvent(t, id)); err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Failed to publish event", err,
			applog.ComponentAMQP, applog.OpPublish, applog.NewFields().WithEvent(string(t)))
	}
}

func logWrite(ctx context.Context, w applog.Write) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogWrite(ctx, w)
}

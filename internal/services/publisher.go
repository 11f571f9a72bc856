package services

import (
	"context"

	"keuangan/internal/amqp"
	"keuangan/internal/log"
)

// Publisher delivers change events. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// notify publishes a change event. Failures are logged and swallowed: the
// write already succeeded.
func notify(ctx context.Context, p Publisher, logger *log.Logger, name string, id int64) {
	if p == nil {
		logger.DebugContext(ctx, "No publisher configured, skipping event", log.FieldEvent, name)
		return
	}
	if err := p.Publish(ctx, amqp.NewEvent(name, id)); err != nil {
		logger.LogError(ctx, "Failed to publish change event", err, log.OpPublish,
			log.NewFields().With(log.FieldEvent, name).With("id", id))
	}
}

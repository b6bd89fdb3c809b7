package services

import (
	"context"

	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

// publishEvent sends a domain event after a successful commit. The commit
// has already happened, so failures are logged rather than returned.
func publishEvent(ctx context.Context, producer queue.Publisher, log *logger.Logger, key string, eventType queue.EventType, data interface{}) {
	event, err := queue.NewEvent(eventType, data)
	if err != nil {
		log.WithError(err).Error("Failed to build event")
		return
	}
	if err := producer.Publish(ctx, key, event); err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}

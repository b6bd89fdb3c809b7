package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

// StatsWorker keeps cached profile counters honest. Every event that changes
// a count drops the cached counters of the users involved; the next profile
// view recounts them from the database. Dropping a key twice is harmless, so
// redelivered events need no bookkeeping.
type StatsWorker struct {
	stats    *services.StatsCache
	consumer *queue.KafkaConsumer
	logger   *logger.Logger
}

func NewStatsWorker(stats *services.StatsCache, consumer *queue.KafkaConsumer, logger *logger.Logger) *StatsWorker {
	return &StatsWorker{
		stats:    stats,
		consumer: consumer,
		logger:   logger,
	}
}

func (w *StatsWorker) Start(ctx context.Context) error {
	if w.consumer == nil {
		return fmt.Errorf("stats worker has no consumer")
	}
	w.logger.Info("Starting stats worker...")

	return w.consumer.Subscribe(ctx, w.HandleEvent, func(err error) {
		w.logger.WithError(err).Error("Failed to process event")
	})
}

func (w *StatsWorker) Stop() error {
	if w.consumer == nil {
		return nil
	}
	return w.consumer.Close()
}

// HandleEvent invalidates the counters an event affects.
func (w *StatsWorker) HandleEvent(ctx context.Context, event queue.Event) error {
	w.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Debug("Processing event")

	userIDs, err := affectedUsers(event)
	if err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	if err := w.stats.Invalidate(ctx, userIDs...); err != nil {
		return fmt.Errorf("failed to invalidate stats: %w", err)
	}
	return nil
}

// affectedUsers returns the users whose counters event changes.
func affectedUsers(event queue.Event) ([]uint, error) {
	switch event.Type {
	case queue.EventUserCreated:
		// a new user starts with an empty cache entry
		return nil, nil

	case queue.EventUserDeleted:
		var data queue.UserEventData
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return append([]uint{data.UserID}, data.Related...), nil

	case queue.EventMessageCreated, queue.EventMessageDeleted:
		var data queue.MessageEventData
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return append([]uint{data.UserID}, data.LikerIDs...), nil

	case queue.EventFollowCreated, queue.EventFollowDeleted:
		var data queue.FollowEventData
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return []uint{data.FollowerID, data.FollowedID}, nil

	case queue.EventLikeCreated, queue.EventLikeDeleted:
		var data queue.LikeEventData
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return []uint{data.UserID}, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}

// InlinePublisher hands events straight to a StatsWorker in the publishing
// goroutine. It replaces kafka when the API runs without a broker.
type InlinePublisher struct {
	worker *StatsWorker
}

func NewInlinePublisher(worker *StatsWorker) *InlinePublisher {
	return &InlinePublisher{worker: worker}
}

func (p *InlinePublisher) Publish(ctx context.Context, _ string, value interface{}) error {
	event, ok := value.(queue.Event)
	if !ok {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
	}
	return p.worker.HandleEvent(ctx, event)
}

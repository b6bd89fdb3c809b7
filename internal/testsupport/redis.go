package testsupport

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/warbler/warbler/pkg/cache"
	"github.com/warbler/warbler/pkg/queue"
)

// NewRedis starts an in-process redis server and a client connected to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "", 0, 4, 0)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, _ string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event, ok := value.(queue.Event); ok {
		p.events = append(p.events, event)
	}
	return nil
}

func (p *RecordingPublisher) Events() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}

// Types returns the type of each published event in order.
func (p *RecordingPublisher) Types() []queue.EventType {
	events := p.Events()
	types := make([]queue.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

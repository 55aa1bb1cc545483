package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/sitescan"
)

var _ sitescan.EventPublisher = (*EventPublisher)(nil)

// EventPublisher is a mock implementation of sitescan.EventPublisher.
type EventPublisher struct {
	PublishFn func(ctx context.Context, evt sitescan.Event)
}

func (p *EventPublisher) Publish(ctx context.Context, evt sitescan.Event) {
	p.PublishFn(ctx, evt)
}

// EventRecorder is an EventPublisher that keeps every event it receives.
// It is safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []sitescan.Event
}

func (r *EventRecorder) Publish(_ context.Context, evt sitescan.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []sitescan.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sitescan.Event(nil), r.events...)
}

package crawl

import (
	"context"

	"github.com/fwojciec/sitescan"
)

var (
	_ sitescan.EventPublisher = (*ChannelPublisher)(nil)
	_ sitescan.EventPublisher = Publishers(nil)
)

// ChannelPublisher delivers events on a channel.
type ChannelPublisher struct {
	ch chan<- sitescan.Event
}

// NewChannelPublisher creates a ChannelPublisher sending on ch.
func NewChannelPublisher(ch chan<- sitescan.Event) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Publish sends evt, blocking until it is received or ctx is done.
// An event that can be sent without blocking is sent even if ctx is done.
func (p *ChannelPublisher) Publish(ctx context.Context, evt sitescan.Event) {
	select {
	case p.ch <- evt:
		return
	default:
	}
	select {
	case p.ch <- evt:
	case <-ctx.Done():
	}
}

// Publishers fans each event out to every publisher in order.
type Publishers []sitescan.EventPublisher

// Publish delivers evt to each publisher.
func (ps Publishers) Publish(ctx context.Context, evt sitescan.Event) {
	for _, p := range ps {
		p.Publish(ctx, evt)
	}
}

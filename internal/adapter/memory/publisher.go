package memory

import (
	"context"
	"sync"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// Publisher records published events and fans them out to subscribers.
// Slow subscribers miss events instead of blocking the publisher.
type Publisher struct {
	mu     sync.Mutex
	events []domain.JobEvent
	subs   map[string][]chan domain.JobEvent
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[string][]chan domain.JobEvent)}
}

// Subscribe returns a buffered channel receiving events for channel, which is
// either domain.GlobalUpdatesChannel or domain.JobChannel(id).
func (p *Publisher) Subscribe(channel string, buffer int) <-chan domain.JobEvent {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.JobEvent, buffer)
	p.mu.Lock()
	p.subs[channel] = append(p.subs[channel], ch)
	p.mu.Unlock()
	return ch
}

func (p *Publisher) Publish(ctx context.Context, ev domain.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	for _, channel := range []string{domain.JobChannel(ev.JobID), domain.GlobalUpdatesChannel} {
		for _, ch := range p.subs[channel] {
			select {
			case ch <- ev:
			default:
			}
		}
	}
	return nil
}

// Events returns a copy of every event published so far.
func (p *Publisher) Events() []domain.JobEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JobEvent(nil), p.events...)
}

var _ domain.EventPublisher = (*Publisher)(nil)

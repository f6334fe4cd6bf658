package serve

import (
	"log/slog"
	"sync"

	deepthink "github.com/everydev1618/godeepthink"
)

// Broker fans pipeline events out to SSE subscribers. Slow subscribers
// lose events; the pipeline is never blocked by a hung connection.
type Broker struct {
	mu     sync.RWMutex
	subs   map[chan deepthink.Event]struct{}
	closed bool
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan deepthink.Event]struct{})}
}

// Subscribe registers a new subscriber. Call the returned cancel
// function to unsubscribe; the channel closes then.
func (b *Broker) Subscribe() (<-chan deepthink.Event, func()) {
	ch := make(chan deepthink.Event, 64)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish implements deepthink.EventSink.
func (b *Broker) Publish(ev deepthink.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("sse event dropped, subscriber too slow", "type", ev.Type, "run_id", ev.RunID)
		}
	}
}

// Close drops all subscribers and closes their channels.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

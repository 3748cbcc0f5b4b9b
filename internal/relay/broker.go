// Package relay fans chart change events out to streaming subscribers.
package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufSize = 256

// Event is one change notification. Feed is the chart id, Kind names what
// changed, Payload is a JSON document.
type Event struct {
	Feed    string          `json:"feed"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

type subscriber struct {
	ch    chan Event
	feeds map[string]bool // nil accepts every feed
}

// Broker fans out events to all subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]subscriber
	nextID      atomic.Int64
	dropped     atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]subscriber),
	}
}

// Subscribe registers a client for the given feeds, or all feeds when none
// are given. The channel is buffered; slow consumers have events dropped.
func (b *Broker) Subscribe(feeds ...string) (int64, <-chan Event) {
	sub := subscriber{ch: make(chan Event, subscriberBufSize)}
	if len(feeds) > 0 {
		sub.feeds = make(map[string]bool, len(feeds))
		for _, f := range feeds {
			sub.feeds[f] = true
		}
	}
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
	b.mu.Unlock()
}

// Publish sends evt to every matching subscriber without blocking.
func (b *Broker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if sub.feeds != nil && !sub.feeds[evt.Feed] {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// PublishJSON marshals v as the payload of a new event.
func (b *Broker) PublishJSON(feed, kind string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("relay: marshal %s payload: %w", kind, err)
	}
	b.Publish(Event{Feed: feed, Kind: kind, Payload: raw})
	return nil
}

func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped reports how many deliveries were skipped for full buffers.
func (b *Broker) Dropped() int64 { return b.dropped.Load() }

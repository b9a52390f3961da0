// Package events provides the in-process publish/subscribe broadcaster
// behind GraphQL subscriptions. The broadcaster is an explicit
// component owned by the server process: its lifecycle is tied to
// server start and stop, publishing is fire-and-forget, and there is no
// backlog or replay for late subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event pairs a topic with its payload.
type Event struct {
	Topic   string
	Payload any
}

// subscriber is one active subscription on a topic.
type subscriber struct {
	id    int
	topic string
	ch    chan any
}

// Broadcaster fans published events out to all subscribers of the
// event's topic. Slow subscribers drop events rather than block the
// broadcast loop.
type Broadcaster struct {
	logger *slog.Logger
	events chan Event

	mu     sync.RWMutex
	subs   map[string]map[int]*subscriber
	nextID int

	shutdownMu sync.RWMutex
	shutdown   bool

	wg sync.WaitGroup
}

// New creates a broadcaster. Start must be called before events flow.
func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		events: make(chan Event, 1000),
		subs:   make(map[string]map[int]*subscriber),
	}
}

// Start runs the broadcast loop until ctx is canceled. Call once at
// server startup in a goroutine.
func (b *Broadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Info("event broadcaster starting")

	for {
		select {
		case event, ok := <-b.events:
			if !ok {
				// Shutdown closed the queue; the drain loop owns the rest.
				return
			}
			b.broadcast(event)
		case <-ctx.Done():
			b.logger.Info("event broadcaster stopping")
			b.closeAll()
			return
		}
	}
}

// Shutdown stops accepting publishes, drains queued events and closes
// every subscriber channel.
func (b *Broadcaster) Shutdown(ctx context.Context) error {
	b.shutdownMu.Lock()
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, remaining events lost")
	}

	b.closeAll()
	b.wg.Wait()
	b.logger.Info("event broadcaster shutdown complete")
	return nil
}

// Publish queues an event for delivery to all current subscribers of
// the topic. It never blocks: when the queue is full the event is
// dropped with a log entry.
func (b *Broadcaster) Publish(topic string, payload any) {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		return
	}

	select {
	case b.events <- Event{Topic: topic, Payload: payload}:
	default:
		b.logger.Error("event queue full, dropping event", slog.String("topic", topic))
	}
}

// Subscribe registers a listener on a topic. The returned channel
// receives every payload published to the topic until ctx is canceled
// or the broadcaster shuts down, at which point it is closed. Events
// published before the subscription are not replayed.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) <-chan any {
	sub := &subscriber{topic: topic, ch: make(chan any, 16)}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]*subscriber)
	}
	b.subs[topic][sub.id] = sub
	total := len(b.subs[topic])
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		slog.String("topic", topic),
		slog.Int("topic_subscribers", total))

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	return sub.ch
}

func (b *Broadcaster) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topicSubs, ok := b.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := topicSubs[sub.id]; !ok {
		return
	}
	delete(topicSubs, sub.id)
	if len(topicSubs) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}

// broadcast delivers one event to every subscriber of its topic.
func (b *Broadcaster) broadcast(event Event) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[event.Topic] {
		// Non-blocking send: a stuck subscriber loses events instead of
		// stalling everyone else.
		select {
		case sub.ch <- event.Payload:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("topic", event.Topic),
				slog.Int("subscriber_id", sub.id))
		}
	}

	b.logger.Debug("event broadcast",
		slog.String("topic", event.Topic),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// closeAll removes and closes every subscriber.
func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, topicSubs := range b.subs {
		for id, sub := range topicSubs {
			delete(topicSubs, id)
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
}

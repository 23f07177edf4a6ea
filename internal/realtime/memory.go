package realtime

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus. A subscriber whose buffer is full misses
// the envelope rather than blocking the publisher.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch chan Envelope
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*memorySub]struct{}),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	env := Envelope{Topic: topic, Payload: append([]byte(nil), payload...)}
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- env:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySub{ch: make(chan Envelope, subscriberBuffer)}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySub]struct{})
	}
	b.subs[topic][sub] = struct{}{}

	done := make(chan struct{})
	s := newSubscription(topic, sub.ch, func() {
		close(done)
		b.unsubscribe(topic, sub)
	})

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	return s, nil
}

func (b *MemoryBus) unsubscribe(topic string, sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(b.subs, topic)
	}
}

// SubscriberCount reports the live subscriptions on topic.
func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close ends every subscription and rejects further use.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
}

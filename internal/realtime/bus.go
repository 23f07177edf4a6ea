// Package realtime carries change events and session events between
// processes. Topics are plain strings; payloads are opaque bytes, usually JSON.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrBusClosed = errors.New("realtime: bus closed")

// subscriberBuffer bounds how many envelopes a slow subscriber may lag behind.
const subscriberBuffer = 64

type Envelope struct {
	Topic   string
	Payload []byte
}

type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns once the subscription is active, so anything published
	// after it returns is delivered.
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

// Subscription delivers envelopes on C until Close is called, the subscribe
// context ends, or the underlying feed fails. C is closed in every case.
type Subscription struct {
	Topic string
	C     <-chan Envelope

	once    sync.Once
	release func()
}

func newSubscription(topic string, c <-chan Envelope, release func()) *Subscription {
	return &Subscription{Topic: topic, C: c, release: release}
}

// Close is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

func PublishJSON(ctx context.Context, bus Bus, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return bus.Publish(ctx, topic, payload)
}

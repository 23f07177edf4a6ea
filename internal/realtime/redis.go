package realtime

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"garment-portal-backend/internal/config"
)

// RedisBus fans envelopes out through Redis pub/sub channels named after topics.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewChatRedisBus(cfg config.RedisConfig, logger *zap.Logger) *RedisBus {
	return NewRedisBus(NewRedisClient(cfg.ChatAddr, cfg.ChatPassword), logger)
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Wait for the subscribe confirmation before reporting success.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	out := make(chan Envelope, subscriberBuffer)
	done := make(chan struct{})
	s := newSubscription(topic, out, func() {
		close(done)
	})

	go func() {
		defer close(out)
		defer func() {
			if err := pubsub.Close(); err != nil {
				b.logger.Debug("redis unsubscribe failed", zap.String("topic", topic), zap.Error(err))
			}
		}()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					b.logger.Warn("redis subscription ended", zap.String("topic", topic))
					return
				}
				select {
				case out <- Envelope{Topic: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return s, nil
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

package feed

import (
	"context"
	"fmt"

	"backend-catmap/internal/stream"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, channel: stream.Channel}
}

func (r *Redis) Subscribe(ctx context.Context, sink Sink) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(subCtx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			if p, ok := decodeRow("redis", []byte(msg.Payload)); ok {
				sink(p)
			}
		}
	}()

	return &subscription{stop: func() error {
		cancel()
		err := pubsub.Close()
		<-done
		return err
	}}, nil
}

package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"backend-catmap/internal/metrics"
	"backend-catmap/internal/post"

	"github.com/redis/go-redis/v9"
)

// Channel carries every inserted cat_posts row as JSON.
const Channel = "cat_posts:inserted"

// Hub fans inserted rows out to websocket clients. With redis configured
// every API replica publishes to Channel and delivers what it receives
// back from it, so a client sees each row once whichever replica wrote it.
type Hub struct {
	redis   *redis.Client
	clients map[*Client]struct{}
	mu      sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	Send chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{clients: map[*Client]struct{}{}}
	if redisClient == nil {
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := redisClient.Subscribe(ctx, Channel)
	confirmCtx, confirmCancel := context.WithTimeout(ctx, 3*time.Second)
	_, err := pubsub.Receive(confirmCtx)
	confirmCancel()
	if err != nil {
		slog.Error("redis subscribe failed, delivering locally", "channel", Channel, "error", err)
		_ = pubsub.Close()
		cancel()
		return h
	}

	h.redis = redisClient
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.subscribeRedis(ctx, pubsub)
	return h
}

func (h *Hub) Register() *Client {
	client := &Client{Send: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
}

// Clients reports how many websocket clients are connected.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishCreated implements post.Publisher.
func (h *Hub) PublishCreated(ctx context.Context, row post.Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return h.Broadcast(ctx, payload)
}

func (h *Hub) Broadcast(ctx context.Context, payload []byte) error {
	if h.redis != nil {
		return h.redis.Publish(ctx, Channel, payload).Err()
	}
	h.deliver(payload)
	return nil
}

// Close stops the redis subscription. Connected clients are left to their
// handlers.
func (h *Hub) Close() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *Hub) deliver(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
			metrics.FeedDeliveries.Inc()
		default:
			slog.Warn("stream client lagging, dropped payload")
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.deliver([]byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

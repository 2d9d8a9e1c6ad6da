// Package feed delivers newly inserted posts to a client as they happen.
// Delivery is at-least-once; callers dedupe by id.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"backend-catmap/internal/post"
)

// Sink receives each arrival. It is called from the feed's own goroutine.
type Sink func(post.Post)

type Subscription interface {
	// Close releases the channel. Calling it again is a no-op.
	Close() error
}

type Feed interface {
	Subscribe(ctx context.Context, sink Sink) (Subscription, error)
}

type subscription struct {
	once sync.Once
	stop func() error
	err  error
}

func (s *subscription) Close() error {
	s.once.Do(func() { s.err = s.stop() })
	return s.err
}

// decodeRow maps one channel payload to a Post. Malformed payloads are
// logged and skipped.
func decodeRow(source string, payload []byte) (post.Post, bool) {
	var row post.Row
	if err := json.Unmarshal(payload, &row); err != nil {
		slog.Warn("skipping malformed feed payload", "source", source, "error", err)
		return post.Post{}, false
	}
	if row.ID == "" {
		slog.Warn("skipping feed payload without id", "source", source)
		return post.Post{}, false
	}
	return post.FromRow(row), true
}

// None never delivers anything. Used when no push channel is configured.
type None struct{}

func (None) Subscribe(context.Context, Sink) (Subscription, error) {
	return &subscription{stop: func() error { return nil }}, nil
}

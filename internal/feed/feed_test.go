package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"backend-catmap/internal/post"
	"backend-catmap/internal/stream"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func collect() (Sink, chan post.Post) {
	ch := make(chan post.Post, 8)
	return func(p post.Post) { ch <- p }, ch
}

func next(t *testing.T, ch chan post.Post) post.Post {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for arrival")
	}
	return post.Post{}
}

func TestRedisFeedMapsRowsAndSkipsGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sink, ch := collect()
	sub, err := NewRedis(rdb).Subscribe(context.Background(), sink)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	mr.Publish(stream.Channel, "not json")
	mr.Publish(stream.Channel, `{"lat":1}`)
	mr.Publish(stream.Channel, `{"id":"r1","lat":35.6,"lng":139.7,"image_url":"http://img/1.jpg","comment":"hi","created_at":"2024-01-01T00:00:00Z"}`)

	p := next(t, ch)
	if p.ID != "r1" || p.ImageURL != "http://img/1.jpg" || p.CreatedAt == nil {
		t.Fatalf("unexpected post %+v", p)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for mr.PubSubNumSub(stream.Channel)[stream.Channel] != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := mr.PubSubNumSub(stream.Channel)[stream.Channel]; n != 0 {
		t.Fatalf("expected subscription released, %d left", n)
	}
}

func TestRedisFeedUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	sink, _ := collect()
	if _, err := NewRedis(rdb).Subscribe(context.Background(), sink); err == nil {
		t.Fatalf("expected subscribe error")
	}
}

func TestWebsocketFeedFromHub(t *testing.T) {
	hub := stream.NewHub(nil)
	app := fiber.New()
	stream.RegisterRoutes(app.Group("/stream"), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()
	go func() {
		_ = app.Listener(ln)
	}()
	defer func() { _ = app.Shutdown() }()

	sink, ch := collect()
	sub, err := NewWebsocket("ws://"+ln.Addr().String()+"/stream/ws").Subscribe(context.Background(), sink)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.PublishCreated(context.Background(), post.Row{ID: "w1", Comment: "from hub"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p := next(t, ch); p.ID != "w1" || p.Comment != "from hub" {
		t.Fatalf("unexpected post %+v", p)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = sub.Close()
}

func TestWebsocketFeedDialError(t *testing.T) {
	sink, _ := collect()
	if _, err := NewWebsocket("ws://127.0.0.1:1/stream/ws").Subscribe(context.Background(), sink); err == nil {
		t.Fatalf("expected dial error")
	}
}

type fakeNATS struct {
	subject string
	cb      nats.MsgHandler
}

func (f *fakeNATS) Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.subject, f.cb = subject, cb
	return nil, nil
}

func TestNATSFeed(t *testing.T) {
	nc := &fakeNATS{}
	sink, ch := collect()
	sub, err := NewNATS(nc).Subscribe(context.Background(), sink)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if nc.subject != stream.Subject {
		t.Fatalf("unexpected subject %q", nc.subject)
	}

	nc.cb(&nats.Msg{Data: []byte("{")})
	nc.cb(&nats.Msg{Data: []byte(`{"id":"n1"}`)})
	if p := next(t, ch); p.ID != "n1" {
		t.Fatalf("unexpected post %+v", p)
	}
	if len(ch) != 0 {
		t.Fatalf("malformed payload should be skipped")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNoneFeed(t *testing.T) {
	sub, err := None{}.Subscribe(context.Background(), func(post.Post) { t.Fatalf("unexpected arrival") })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
)

// Websocket reads the API's /stream/ws change feed.
type Websocket struct {
	url    string
	dialer *websocket.Dialer
}

func NewWebsocket(url string) *Websocket {
	return &Websocket{url: url, dialer: websocket.DefaultDialer}
}

func (w *Websocket) Subscribe(ctx context.Context, sink Sink) (Subscription, error) {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", w.url, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				slog.Debug("feed websocket closed", "url", w.url, "error", err)
				return
			}
			if p, ok := decodeRow("websocket", msg); ok {
				sink(p)
			}
		}
	}()

	return &subscription{stop: func() error {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err := conn.Close()
		<-done
		return err
	}}, nil
}

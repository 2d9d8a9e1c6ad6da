package feed

import (
	"context"
	"fmt"

	"backend-catmap/internal/stream"

	"github.com/nats-io/nats.go"
)

type natsSubscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type NATS struct {
	nc natsSubscriber
}

// NewNATS accepts a *nats.Conn.
func NewNATS(nc natsSubscriber) *NATS {
	return &NATS{nc: nc}
}

func (n *NATS) Subscribe(_ context.Context, sink Sink) (Subscription, error) {
	sub, err := n.nc.Subscribe(stream.Subject, func(msg *nats.Msg) {
		if p, ok := decodeRow("nats", msg.Data); ok {
			sink(p)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", stream.Subject, err)
	}
	return &subscription{stop: func() error {
		if sub == nil {
			return nil
		}
		return sub.Unsubscribe()
	}}, nil
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend-catmap/internal/post"
)

// Subject is the NATS subject inserted rows are mirrored to.
const Subject = "cat_posts.inserted"

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc natsPublisher
}

// NewNATSPublisher accepts a *nats.Conn.
func NewNATSPublisher(nc natsPublisher) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) PublishCreated(_ context.Context, row post.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	return p.nc.Publish(Subject, data)
}

// Publishers sends each row to every publisher and reports all failures.
type Publishers []post.Publisher

func (ps Publishers) PublishCreated(ctx context.Context, row post.Row) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishCreated(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package db

import (
	"time"

	"backend-catmap/internal/config"

	"github.com/nats-io/nats.go"
)

var natsConnectFn = nats.Connect

// ConnectNATS returns nil without error when no NATS url is configured.
func ConnectNATS(cfg config.Config) (*nats.Conn, error) {
	if cfg.NatsURL == "" {
		return nil, nil
	}
	return natsConnectFn(cfg.NatsURL,
		nats.Name("catmap"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
}

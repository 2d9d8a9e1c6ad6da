package main

import (
	"context"
	"fmt"
	"log/slog"

	"backend-catmap/internal/config"
	"backend-catmap/internal/db"
	"backend-catmap/internal/feed"
	"backend-catmap/internal/objectstore"
	"backend-catmap/internal/post"
	"backend-catmap/internal/stream"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// backend is what the commands run against. insertRow is nil unless posts
// live in Postgres.
type backend struct {
	repo      post.Repository
	feed      feed.Feed
	insertRow func(context.Context, post.Row) (post.Post, error)
	close     func()
}

type backendOpener func(ctx context.Context, cfg config.Config) (*backend, error)

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	var (
		pg  *pgxpool.Pool
		err error
	)
	if cfg.StorageMode != config.StorageMemory {
		pg, err = db.ConnectPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	}

	var objects objectstore.Store = objectstore.NewMemory(cfg.S3PublicURL, cfg.S3Bucket)
	if cfg.StorageMode != config.StorageMemory {
		m, err := objectstore.NewMinio(cfg)
		if err != nil {
			pg.Close()
			return nil, fmt.Errorf("connect object storage: %w", err)
		}
		objects = m
	}

	rdb := db.ConnectRedis(cfg)
	nc, err := db.ConnectNATS(cfg)
	if err != nil {
		slog.Warn("nats unavailable", "url", cfg.NatsURL, "error", err)
	}

	b := &backend{}
	var hub *stream.Hub
	publishers := stream.Publishers{}
	if rdb != nil {
		hub = stream.NewHub(rdb)
		publishers = append(publishers, hub)
	}
	if nc != nil {
		publishers = append(publishers, stream.NewNATSPublisher(nc))
	}

	var repo post.Repository
	if pg != nil {
		store := post.NewStore(pg, objects, cfg.MaxImageBytes)
		b.insertRow = store.InsertRow
		repo = store
	} else {
		repo = post.NewMemoryStore(objects, cfg.MaxImageBytes)
	}
	if len(publishers) > 0 {
		repo = post.WithPublisher(repo, publishers)
	}
	b.repo = repo
	b.feed = selectFeed(cfg, rdb, nc)

	b.close = func() {
		if hub != nil {
			hub.Close()
		}
		if pg != nil {
			pg.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		if nc != nil {
			nc.Close()
		}
	}
	return b, nil
}

func selectFeed(cfg config.Config, rdb *redis.Client, nc *nats.Conn) feed.Feed {
	switch cfg.Feed {
	case "redis":
		if rdb != nil {
			return feed.NewRedis(rdb)
		}
	case "nats":
		if nc != nil {
			return feed.NewNATS(nc)
		}
	case "websocket":
		return feed.NewWebsocket(cfg.StreamURL)
	case "none", "":
		return feed.None{}
	}
	slog.Warn("feed not available, realtime updates disabled", "feed", cfg.Feed)
	return feed.None{}
}

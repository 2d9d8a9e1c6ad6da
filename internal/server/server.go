package server

import (
	"log/slog"

	"backend-catmap/internal/config"
	"backend-catmap/internal/metrics"
	"backend-catmap/internal/objectstore"
	"backend-catmap/internal/post"
	"backend-catmap/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App       *fiber.App
	Cfg       config.Config
	Posts     post.Repository
	Redis     *redis.Client
	Stream    *stream.Hub
	Publisher post.Publisher
}

func NewServer(cfg config.Config, posts post.Repository, redisClient *redis.Client, nc *nats.Conn) *Server {
	app := fiber.New(fiber.Config{BodyLimit: bodyLimit(cfg.MaxImageBytes)})
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	publishers := stream.Publishers{hub}
	if nc != nil {
		publishers = append(publishers, stream.NewNATSPublisher(nc))
	}

	s := &Server{
		App:       app,
		Cfg:       cfg,
		Posts:     posts,
		Redis:     redisClient,
		Stream:    hub,
		Publisher: publishers,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", metrics.Handler())

	limiter := NewRateLimiter(s.Cfg.CreateRatePerMinute, s.Cfg.CreateRateBurst)
	repo := post.WithPublisher(s.Posts, s.Publisher)
	post.RegisterRoutes(s.App.Group("/posts"), repo, s.Cfg.MaxImageBytes, limiter.Handler())
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// NewRepository picks the storage strategy. Without a Postgres pool the
// server keeps serving from memory.
func NewRepository(cfg config.Config, pg *pgxpool.Pool, objects objectstore.Store) post.Repository {
	if objects == nil {
		objects = objectstore.NewMemory(cfg.S3PublicURL, cfg.S3Bucket)
	}
	if cfg.StorageMode == config.StorageMemory || pg == nil {
		if cfg.StorageMode != config.StorageMemory {
			slog.Warn("postgres unavailable, serving posts from memory")
		}
		return post.NewMemoryStore(objects, cfg.MaxImageBytes)
	}
	return post.NewStore(pg, objects, cfg.MaxImageBytes)
}

// bodyLimit leaves room for the multipart envelope around the image.
func bodyLimit(maxImageBytes int64) int {
	if maxImageBytes <= 0 {
		maxImageBytes = config.DefaultMaxImageBytes
	}
	return int(maxImageBytes) + 64*1024
}

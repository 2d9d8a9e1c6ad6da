package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-catmap/internal/config"
	"backend-catmap/internal/db"
	"backend-catmap/internal/logging"
	"backend-catmap/internal/objectstore"
	"backend-catmap/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

// Resources are the backend connections the server runs on. Any of them may
// be nil.
type Resources struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	NATS     *nats.Conn
	Objects  objectstore.Store
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	ensureSchema    func(context.Context, *pgxpool.Pool) error
	connectRedis    func(config.Config) *redis.Client
	connectNATS     func(config.Config) (*nats.Conn, error)
	connectObjects  func(context.Context, config.Config) (objectstore.Store, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, Resources, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		ensureSchema: func(ctx context.Context, pool *pgxpool.Pool) error {
			return db.EnsureSchema(ctx, pool)
		},
		connectRedis:   db.ConnectRedis,
		connectNATS:    db.ConnectNATS,
		connectObjects: connectObjects,
		notify:         signal.Notify,
		run:            Run,
	}
}

func connectObjects(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	if cfg.StorageMode == config.StorageMemory {
		return objectstore.NewMemory(cfg.S3PublicURL, cfg.S3Bucket), nil
	}
	m, err := objectstore.NewMinio(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logging.Init(cfg.Env, os.Stdout)
	ctx := context.Background()

	var res Resources
	if cfg.StorageMode != config.StorageMemory {
		pg, err := deps.connectPostgres(cfg)
		if err != nil {
			slog.Error("postgres connection failed", "error", err)
		} else if err := deps.ensureSchema(ctx, pg); err != nil {
			slog.Error("schema setup failed", "error", err)
		}
		res.Postgres = pg
	}

	objects, err := deps.connectObjects(ctx, cfg)
	if err != nil {
		slog.Error("object storage unavailable, keeping images in memory", "endpoint", cfg.S3Endpoint, "error", err)
		objects = objectstore.NewMemory(cfg.S3PublicURL, cfg.S3Bucket)
	}
	res.Objects = objects

	res.Redis = deps.connectRedis(cfg)

	nc, err := deps.connectNATS(cfg)
	if err != nil {
		slog.Error("nats connection failed", "url", cfg.NatsURL, "error", err)
	}
	res.NATS = nc

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, res, signals, nil); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, res Resources, signals <-chan os.Signal, listen ListenFunc) error {
	repo := server.NewRepository(cfg, res.Postgres, res.Objects)
	srv := server.NewServer(cfg, repo, res.Redis, res.NATS)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	srv.Stream.Close()
	if res.Postgres != nil {
		res.Postgres.Close()
	}
	if res.Redis != nil {
		_ = res.Redis.Close()
	}
	if res.NATS != nil {
		res.NATS.Close()
	}
	return nil
}

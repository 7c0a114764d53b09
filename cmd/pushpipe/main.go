package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pushpipe/internal/broker"
	"github.com/dmitrymomot/pushpipe/internal/consumer"
	"github.com/dmitrymomot/pushpipe/internal/dedup"
	"github.com/dmitrymomot/pushpipe/internal/delivery"
	"github.com/dmitrymomot/pushpipe/internal/gateway"
	"github.com/dmitrymomot/pushpipe/internal/health"
	"github.com/dmitrymomot/pushpipe/internal/retry"
	"github.com/dmitrymomot/pushpipe/internal/status"
	"github.com/dmitrymomot/pushpipe/internal/template"
	"github.com/dmitrymomot/pushpipe/pkg/config"
	"github.com/dmitrymomot/pushpipe/pkg/httpserver"
	"github.com/dmitrymomot/pushpipe/pkg/logger"
	"github.com/dmitrymomot/pushpipe/pkg/pg"
	pkgredis "github.com/dmitrymomot/pushpipe/pkg/redis"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"push-worker"`
	// TemplateAPI switches on the template management API, which needs a
	// PostgreSQL connection on top of the worker's Redis.
	TemplateAPI bool `env:"TEMPLATE_API_ENABLED" envDefault:"false"`
	// StaticToken bypasses the service-account flow when targeting a local
	// gateway stub.
	StaticToken string `env:"FCM_ACCESS_TOKEN"`

	Logger   logger.Config
	Redis    pkgredis.Config
	HTTP     httpserver.Config
	Broker   broker.Config
	Consumer consumer.Config
	Delivery delivery.Config
	Retry    retry.Config
	Gateway  gateway.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Logger, logger.WithService(cfg.ServiceName))
	logger.SetAsDefault(log)

	redisClient, err := pkgredis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	queue := broker.New(redisClient, cfg.Broker, log)
	if err := queue.EnsureGroup(ctx); err != nil {
		return err
	}

	var tokens gateway.TokenSource
	if cfg.StaticToken != "" {
		tokens = gateway.StaticTokenSource(cfg.StaticToken)
	} else {
		tokens, err = gateway.ServiceAccountTokenSource(ctx, cfg.Gateway.CredentialsBase64)
		if err != nil {
			return err
		}
	}
	gw := gateway.New(cfg.Gateway, tokens, gateway.WithLogger(log))

	tracker := retry.NewRedisTracker(redisClient, cfg.Retry.CounterTTL)
	statusPub := status.New(queue, log)

	orch := delivery.New(cfg.Delivery,
		dedup.New(redisClient), gw, tracker, queue, statusPub,
		delivery.WithLogger(log),
	)

	worker := consumer.New(cfg.Consumer, queue, orch, consumer.WithLogger(log))

	router := chi.NewRouter()
	router.Mount("/", health.New(
		cfg.ServiceName,
		pkgredis.Healthcheck(redisClient),
		queue, tracker, gw.Breaker(), worker,
		log,
	).Router())

	if cfg.TemplateAPI {
		cleanup, err := mountTemplateAPI(ctx, router, redisClient, log)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return queue.RunScheduler(ctx) })
	g.Go(func() error { return server.Run(ctx, router) })

	log.InfoContext(ctx, "service started",
		slog.String("service", cfg.ServiceName),
		slog.String("consumer", worker.Name()),
		slog.Bool("template_api", cfg.TemplateAPI))

	return g.Wait()
}

// mountTemplateAPI connects PostgreSQL, applies the template migrations and
// mounts the management API. The returned cleanup closes the pool.
func mountTemplateAPI(ctx context.Context, router chi.Router, cache redis.UniversalClient, log *slog.Logger) (func(), error) {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := template.Migrate(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	svc := template.NewService(
		template.NewStorage(pool),
		template.NewCache(cache, time.Hour, log),
		log,
	)
	router.Mount("/api/v1", template.NewHandler(svc, log).Router())

	return pool.Close, nil
}

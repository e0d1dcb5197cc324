package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/tastypie-client/pkg/adapter"
	"github.com/Sternrassler/tastypie-client/pkg/loader"
	"github.com/Sternrassler/tastypie-client/pkg/logging"
	"github.com/Sternrassler/tastypie-client/pkg/metastore"
	"github.com/Sternrassler/tastypie-client/pkg/transport"
	"github.com/caarlos0/env/v6"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment.
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	ServerDomain   string        `env:"SERVER_DOMAIN"`
	Namespace      string        `env:"NAMESPACE" envDefault:"api/v1"`
	Since          string        `env:"SINCE" envDefault:"next"`
	MaxURLLength   int           `env:"MAX_URL_LENGTH" envDefault:"2048"`
	RedisURL       string        `env:"REDIS_URL"`
	MetastoreTTL   time.Duration `env:"METASTORE_TTL" envDefault:"24h"`
	Port           string        `env:"PORT" envDefault:"8080"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"tastypie-client/0.1.0"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool          `env:"LOG_PRETTY" envDefault:"false"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse configuration")
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Proxy failed")
	}
}

func run(ctx context.Context, cfg Config) error {
	var (
		store  metastore.Store = metastore.NewMemoryStore()
		pinger Pinger
	)
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
		}
		log.Info().Str("addr", cfg.RedisURL).Msg("Connected to Redis")

		store = metastore.NewRedisStore(redisClient, cfg.MetastoreTTL, logging.NewLogger("tastypie-metastore"))
		pinger = redisPinger{redisClient}
	}

	srv, closeFn, err := newServer(cfg, store, pinger)
	if err != nil {
		return err
	}
	defer closeFn()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("api", cfg.APIBaseURL).
			Str("namespace", cfg.Namespace).
			Msg("Starting tastypie proxy")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// newServer wires transport, adapter and loader for cfg.
func newServer(cfg Config, store metastore.Store, pinger Pinger) (*server, func() error, error) {
	tcfg := transport.DefaultConfig(cfg.APIBaseURL)
	tcfg.UserAgent = cfg.UserAgent
	tcfg.Timeout = cfg.RequestTimeout

	client, err := transport.New(tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create transport: %w", err)
	}

	acfg := adapter.DefaultConfig()
	acfg.ServerDomain = cfg.ServerDomain
	acfg.Namespace = cfg.Namespace
	acfg.Since = cfg.Since
	acfg.MaxURLLength = cfg.MaxURLLength

	a, err := adapter.New(acfg, client)
	if err != nil {
		return nil, nil, fmt.Errorf("create adapter: %w", err)
	}

	lcfg := loader.DefaultConfig()
	lcfg.Since = cfg.Since
	l, err := loader.New(a, store, lcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loader: %w", err)
	}

	return &server{
		adapter: a,
		loader:  l,
		pinger:  pinger,
		timeout: cfg.RequestTimeout,
		logger:  logging.NewLogger("tastypie-proxy"),
	}, client.Close, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

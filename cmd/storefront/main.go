package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/hosted"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/probe"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- session tokens ---
	var tokens session.TokenStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		tokens = session.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("session tokens in redis", "addr", cfg.RedisAddr)
	} else {
		tokens = session.NewMemoryStore(cfg.SessionTTL)
	}

	// --- hosted backend ---
	if cfg.Hosted.RunMigrations {
		if err := db.RunMigrations(cfg.Hosted.DSN, logger); err != nil {
			return err
		}
	}
	pool, err := db.NewPool(ctx, cfg.Hosted.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	secondary := hosted.New(pool, tokens, hosted.WithSessionTTL(cfg.Hosted.SessionTTL))

	// --- primary backend ---
	primaryClient := clients.NewClient("primary", cfg.Primary.BaseURL, clients.NewHTTPClient(cfg.Primary.Timeout), tokens)
	probeOpts := probe.Options{
		Path:     cfg.Probe.Path,
		Timeout:  cfg.Probe.Timeout,
		CacheTTL: cfg.Probe.CacheTTL,
		Logger:   logger,
		Metrics:  m,
	}
	if cfg.Probe.BreakerEnabled {
		probeOpts.Breaker = &probe.BreakerOptions{
			ConsecutiveFailures: cfg.Probe.BreakerFailures,
			OpenTimeout:         cfg.Probe.BreakerOpenTimeout,
		}
	}
	prober := probe.New(primaryClient, probeOpts)

	svc, err := storefront.New(storefront.Options{
		Primary:   clients.NewPrimary(primaryClient),
		Secondary: secondary,
		Probe:     prober,
		Tokens:    tokens,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	// --- AMQP ---
	cartOpts := []cart.Option{cart.WithLogger(logger), cart.WithMetrics(m)}
	if cfg.AMQPURL != "" {
		conn, err := events.Dial(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer closeQuietly(conn)

		pub, err := events.NewPublisher(conn)
		if err != nil {
			return err
		}
		defer pub.Close()
		cartOpts = append(cartOpts, cart.WithNotifier(pub))
	}
	carts := cart.NewRegistry(svc, cartOpts...)

	// --- HTTP ---
	h := httpapi.NewHandler(svc, carts, prober, logger)
	r := httpapi.NewRouter(h, httpapi.RouterConfig{
		Logger:       logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		SessionTTL:   cfg.SessionTTL,
		Gatherer:     reg,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "primary", cfg.Primary.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", "signal", sig.String())
	case runErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	return runErr
}

func closeQuietly(conn *amqp.Connection) {
	_ = conn.Close()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/consumer"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/handler"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/ingest/publisher"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/cache"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/executor"
	queryhandler "github.com/Adithya-Monish-Kumar-K/postings-engine/internal/query/handler"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/internal/store"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/postings-engine/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting postings service",
		"port", cfg.Server.Port,
		"postgres", cfg.Postgres.Enabled,
		"kafka", cfg.Kafka.Enabled,
		"redis", cfg.Redis.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("postings service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("postings service stopped")
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(reg)
	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port, reg); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	idx := index.NewMemoryIndex()
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms", idx.Terms())}
	})

	retryCfg := resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond, JitterFraction: 0.1}

	var eventStore consumer.EventStore
	if cfg.Postgres.Enabled {
		db, err := resilience.Do(ctx, "postgres connect", retryCfg, func() (*postgres.Client, error) {
			return postgres.New(ctx, cfg.Postgres)
		})
		if err != nil {
			return err
		}
		closers = append(closers, db.Close)
		checker.Register("postgres", health.PingCheck(db.Ping, health.StatusDown))

		st := store.New(db)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		entries, err := resilience.Do(ctx, "postings load", retryCfg, func() ([]index.TermEntry, error) {
			return st.Load(ctx)
		})
		if err != nil {
			return err
		}
		if err := idx.Restore(entries); err != nil {
			return fmt.Errorf("restoring index: %w", err)
		}
		if err := idx.Verify(); err != nil {
			return fmt.Errorf("verifying restored index: %w", err)
		}
		m.IndexTerms.Set(float64(idx.Terms()))
		slog.Info("index restored from postgres", "terms", idx.Terms())
		eventStore = st
	}

	var queryCache *cache.QueryCache
	var invalidator consumer.CacheInvalidator
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			closers = append(closers, redisClient.Close)
			checker.Register("redis", health.PingCheck(redisClient.Ping, health.StatusDegraded))
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, pkgredis.IsNilError, m)
			invalidator = queryCache
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var sink publisher.Sink
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.PostingsTopic)
		closers = append(closers, producer.Close)
		sink = publisher.NewKafka(producer)

		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.PostingsTopic,
			consumer.HandleMessage(idx, eventStore, invalidator, m))
		closers = append(closers, kc.Close)
		go func() {
			if err := kc.Start(ctx); err != nil {
				slog.Error("postings consumer error", "error", err)
			}
		}()
		slog.Info("postings consumer started", "topic", cfg.Kafka.PostingsTopic, "group", cfg.Kafka.ConsumerGroup)
	} else {
		applier := consumer.NewApplier(idx, eventStore, invalidator, m)
		sink = publisher.NewDirect(applier.Apply)
		slog.Info("kafka disabled, applying posting events in-process")
	}

	searchH := queryhandler.New(executor.New(idx, m), queryCache, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	postingsH := ingesthandler.New(sink, idx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", searchH.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", searchH.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", searchH.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/postings", postingsH.Submit)
	mux.HandleFunc("GET /api/v1/postings/{term}", postingsH.Get)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("postings service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

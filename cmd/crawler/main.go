package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/jailcrawler/internal/api"
	"github.com/your-org/jailcrawler/internal/api/handlers"
	"github.com/your-org/jailcrawler/internal/config"
	"github.com/your-org/jailcrawler/internal/crawl"
	"github.com/your-org/jailcrawler/internal/embed"
	"github.com/your-org/jailcrawler/internal/extract"
	"github.com/your-org/jailcrawler/internal/observability"
	"github.com/your-org/jailcrawler/internal/persist"
	"github.com/your-org/jailcrawler/internal/queue"
	"github.com/your-org/jailcrawler/internal/scheduler"
	"github.com/your-org/jailcrawler/internal/source"
	"github.com/your-org/jailcrawler/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single crawl and exit even when a schedule is configured")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting jail crawler", "root_url", cfg.Source.RootURL, "driver", cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}

	// Relational store
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("connect to store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	checks["store"] = store

	// Object storage (optional)
	var objects persist.ObjectStore
	if cfg.MinIO.Enabled() {
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		objects = minioStore
		checks["minio"] = minioStore
	} else {
		slog.Info("object storage not configured, booking photos stay in the img table only")
	}

	// Embedding service (optional)
	var embedder crawl.Embedder
	if cfg.Embedding.Enabled() {
		client, err := embed.NewClient(cfg.Embedding)
		if err != nil {
			slog.Error("create embedding client", "error", err)
			os.Exit(1)
		}
		embedder = client
	}

	// NATS (optional)
	var publisher crawl.Publisher
	if cfg.NATS.Enabled() {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		publisher = producer
		checks["nats"] = handlers.PingFunc(func(context.Context) error { return producer.Ping() })
	}

	fetcher := source.NewClient(cfg.Source)
	extractor, err := extract.NewExtractor(fetcher)
	if err != nil {
		slog.Error("create extractor", "error", err)
		os.Exit(1)
	}

	runner := crawl.NewRunner(crawl.Deps{
		Store:      store,
		Walker:     crawl.NewWalker(fetcher, extractor, cfg.Source.RootURL, cfg.Crawl.StopEarly),
		Serializer: persist.NewSerializer(store, objects),
		Backfiller: persist.NewBackfiller(store, objects),
		Embedder:   embedder,
		Publisher:  publisher,
	}, cfg.Source.ListingURLs, cfg.Crawl.Window)

	if cfg.Crawl.Schedule == "" || *once {
		if _, err := runner.Run(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	runDaemon(ctx, cfg, runner, checks)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-memory store, nothing will survive the process")
		return storage.NewMemoryStore(), nil
	}

	db, err := storage.NewPostgresStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EnsureSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

func runDaemon(ctx context.Context, cfg *config.Config, runner *crawl.Runner, checks map[string]handlers.Pinger) {
	sched := scheduler.New()
	err := sched.Schedule(cfg.Crawl.Schedule, func() {
		if _, err := runner.Run(ctx); err != nil && !errors.Is(err, crawl.ErrRunInProgress) {
			slog.Error("scheduled crawl failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("schedule crawl", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Crawl.RunOnStart {
		go func() {
			if _, err := runner.Run(ctx); err != nil && !errors.Is(err, crawl.ErrRunInProgress) {
				slog.Error("startup crawl failed", "error", err)
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:      cfg.Server.APIKey,
		Checks:      checks,
		Runs:        runner,
		BaseContext: ctx,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ops server listening", "addr", srv.Addr, "schedule", cfg.Crawl.Schedule)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down crawler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("crawler stopped")
}

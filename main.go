package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	wvindex "doculens/internal/adapter/weaviate"
	"doculens/internal/app"
	"doculens/internal/blob"
	"doculens/internal/config"
	"doculens/internal/logger"
	"doculens/internal/vector"
)

func main() {
	// Structured logger; the context handler stamps correlation IDs.
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Database Connection
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(retryDelay)
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	// 3. Run Migrations
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// 4. Weaviate Connection & Schema
	wClient, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
	})
	if err != nil {
		slog.Error("failed to create weaviate client", "error", err)
		os.Exit(1)
	}

	wAdapter := vector.NewWeaviateClientAdapter(wClient)
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := vector.EnsureSchema(context.Background(), wAdapter); err == nil {
			slog.Info("weaviate schema ensured")
			break
		}
		slog.Warn("failed to ensure weaviate schema, retrying...", "attempt", i+1, "error", err)
		time.Sleep(retryDelay)
	}
	if err := vector.EnsureSchema(context.Background(), wAdapter); err != nil {
		slog.Error("failed to ensure weaviate schema after retries", "error", err)
		os.Exit(1)
	}

	index := wvindex.NewIndex(wClient)

	// 5. Content Store
	blobs, err := blob.NewStore(cfg.BlobDir, []byte(cfg.BlobSigningKey))
	if err != nil {
		slog.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}

	// 6. NSQ Producer
	nsqCfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ producer", "error", err)
		os.Exit(1)
	}
	defer producer.Stop()

	// 7. Wire the application
	application, err := app.New(cfg, db, index, blobs, producer)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 8. Workflow consumer
	consumerCfg := nsq.NewConfig()
	consumerCfg.MaxInFlight = cfg.IngestConcurrency
	consumer, err := nsq.NewConsumer(config.TopicIngestTask, "workflow", consumerCfg)
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
		os.Exit(1)
	}
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(msg *nsq.Message) error {
		return application.TaskConsumer.HandleMessage(msg)
	}), cfg.IngestConcurrency)
	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		slog.Error("failed to connect to NSQLookupd", "error", err)
	} else {
		slog.Info("workflow consumer connected", "topic", config.TopicIngestTask, "concurrency", cfg.IngestConcurrency)
	}
	defer consumer.Stop()

	// 9. Recovery sweep: re-enqueue jobs interrupted by a previous crash.
	if recovered, err := application.IngestService.Recover(ctx); err != nil {
		slog.Warn("recovery sweep failed", "error", err)
	} else if recovered > 0 {
		slog.Info("recovered interrupted jobs", "count", recovered)
	}

	// 10. Serve
	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

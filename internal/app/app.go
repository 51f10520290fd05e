// Package app wires the features together. Every dependency is constructed
// once at process start and injected; there are no ambient singletons.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"doculens/features/chat"
	"doculens/features/document"
	"doculens/features/ingest"
	"doculens/internal/adapter/docanalysis"
	"doculens/internal/adapter/gemini"
	"doculens/internal/blob"
	"doculens/internal/config"
	"doculens/internal/middleware"
)

type App struct {
	Handler       http.Handler
	IngestService *ingest.Service
	TaskConsumer  *ingest.TaskConsumer

	port int
}

// SearchIndex is everything the three features collectively need from the
// vector index.
type SearchIndex interface {
	ingest.SearchIndex
	chat.SearchIndex
}

func New(
	cfg *config.Config,
	db *sql.DB,
	index SearchIndex,
	blobs *blob.Store,
	taskPub ingest.TaskPublisher,
) (*App, error) {
	// Adapters
	geminiClient := gemini.NewClient(cfg.GeminiAPIKey)
	analyzer := docanalysis.NewClient(cfg.AnalyzerURL, cfg.ClassifierModel)

	// Feature: document (metadata store)
	docRepo := document.NewPostgresRepo(db)
	docService := document.NewService(docRepo, blobs, index)
	docHandler := document.NewHandler(docService)

	// Feature: ingest (workflow)
	ingestRepo := ingest.NewPostgresRepo(db)
	extractStage := ingest.NewExtractStage(blobs, analyzer)
	indexStage := ingest.NewIndexStage(geminiClient, index)
	persistStage := ingest.NewPersistStage(docRepo)
	orchestrator := ingest.NewOrchestrator(ingestRepo, ingestRepo, extractStage, indexStage, persistStage)
	ingestService := ingest.NewService(orchestrator, ingestRepo, taskPub, docRepo, indexStage, cfg.ReindexConcurrency)
	ingestHandler := ingest.NewHandler(ingestService, blobs, cfg.MaxUploadSizeMB)
	taskConsumer := ingest.NewTaskConsumer(ingestService)

	// Feature: chat (query engine)
	queryLogger, err := chat.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = chat.NewQueryLogger(os.Stdout)
	}
	chatService := chat.NewService(geminiClient, index, geminiClient, queryLogger,
		time.Duration(cfg.QueryTimeoutSeconds)*time.Second)
	chatHandler := chat.NewHandler(chatService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(ingestHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))

	mux.Handle("GET /jobs/{id}", middleware.CorrelationID(enableCORS(ingestHandler.GetJob)))
	mux.Handle("POST /reindex", middleware.CorrelationID(enableCORS(ingestHandler.Reindex)))

	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:       mux,
		IngestService: ingestService,
		TaskConsumer:  taskConsumer,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

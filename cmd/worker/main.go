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

	"github.com/verirag/verirag/internal/bootstrap"
	"github.com/verirag/verirag/internal/config"
	"github.com/verirag/verirag/internal/observability/logging"
	"github.com/verirag/verirag/internal/observability/metrics"
)

const ingestTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	cfg.IngestMode = config.IngestModeAsync
	log := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, documentID string) error {
		ingestCtx, cancel := context.WithTimeout(handlerCtx, ingestTimeout)
		defer cancel()

		if doc, lookupErr := app.Repo.GetByID(ingestCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(doc.CreatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		ingestErr := app.IngestUC.Ingest(ingestCtx, documentID)
		workerMetrics.FinishDocument("worker", time.Since(start), ingestErr)

		if ingestErr != nil {
			log.Error("document ingestion failed", "document_id", documentID, "error", ingestErr)
		} else {
			log.Info("document ingested", "document_id", documentID, "duration", time.Since(start))
		}
		return ingestErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker subscription failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/invoice-intake/internal/bootstrap"
	"github.com/kirillkom/invoice-intake/internal/config"
	"github.com/kirillkom/invoice-intake/internal/observability/logging"
	"github.com/kirillkom/invoice-intake/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeInvoiceUploaded(ctx, func(handlerCtx context.Context, invoiceID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if inv, err := app.Repo.GetByID(processCtx, invoiceID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(inv.UploadedAt))
		}

		workerMetrics.StartInvoice()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, invoiceID)
		workerMetrics.FinishInvoice("worker", time.Since(start), processErr)

		if processErr == nil {
			if extraction, report, err := app.Repo.GetExtraction(processCtx, invoiceID); err == nil {
				workerMetrics.ObserveExtraction("worker", extraction, report)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

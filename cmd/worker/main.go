package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a11yomatic/a11y-engine/internal/bootstrap"
	"github.com/a11yomatic/a11y-engine/internal/config"
	"github.com/a11yomatic/a11y-engine/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, service, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
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

	errs := make(chan error, 2)

	go func() {
		log.Printf("worker subscribed to %s", cfg.NATSAnalyzeSubject)
		errs <- app.Queue.SubscribeAnalyze(ctx, func(handlerCtx context.Context, documentID string) error {
			runCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			workerMetrics.StartAnalysis()
			start := time.Now()
			err := app.AnalyzeUC.Run(runCtx, documentID)
			workerMetrics.FinishAnalysis(service, time.Since(start), err)
			if err == nil {
				if report, reportErr := app.Reports.LatestByDocument(runCtx, documentID); reportErr == nil {
					workerMetrics.ObserveAnalysisResult(service, report.TotalIssues, report.OverallScore)
				}
			}
			return err
		})
	}()

	go func() {
		log.Printf("worker subscribed to %s", cfg.NATSBulkSubject)
		errs <- app.Queue.SubscribeBulk(ctx, func(handlerCtx context.Context, jobID string) error {
			runCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Minute)
			defer cancel()

			err := app.BulkUC.RunJob(runCtx, jobID)
			if job, jobErr := app.Jobs.GetByID(runCtx, jobID); jobErr == nil {
				workerMetrics.FinishBulkJob(service, string(job.Kind), job.Successful, job.Failed, err)
			}
			return err
		})
	}()

	select {
	case err := <-errs:
		if err != nil {
			log.Fatalf("worker subscribe error: %v", err)
		}
	case <-ctx.Done():
	}
}

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/a11yomatic/a11y-engine/internal/config"
	"github.com/a11yomatic/a11y-engine/internal/core/ports"
	"github.com/a11yomatic/a11y-engine/internal/core/usecase"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/annotation"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/content"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/llm/ollama"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/queue/nats"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/repository/postgres"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/resilience"
	"github.com/a11yomatic/a11y-engine/internal/infrastructure/storage/localfs"
	"github.com/a11yomatic/a11y-engine/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   *nats.Queue
	Reports ports.ReportRepository
	Jobs    ports.BulkJobRepository

	DocumentUC    *usecase.DocumentUseCase
	AnalyzeUC     *usecase.AnalyzeUseCase
	RemediationUC *usecase.RemediationUseCase
	BulkUC        *usecase.BulkUseCase

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSAnalyzeSubject, cfg.NATSBulkSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	docRepo := postgres.NewDocumentRepository(db)
	issueRepo := postgres.NewIssueRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	jobRepo := postgres.NewBulkJobRepository(db)
	resultWriter := postgres.NewResultWriter(db)

	generator := ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor)
	applier := annotation.New(cfg.AnnotationURL, executor)
	source := content.NewSource(storage)

	documentUC := usecase.NewDocumentUseCase(docRepo, storage, cfg.MaxUploadBytes, logger)
	analyzeUC := usecase.NewAnalyzeUseCase(docRepo, issueRepo, reportRepo, resultWriter, source, queue)
	remediationUC := usecase.NewRemediationUseCase(docRepo, issueRepo, planRepo, generator, logger)
	bulkUC := usecase.NewBulkUseCase(issueRepo, planRepo, jobRepo, queue, applier, remediationUC, logger)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Queue:   queue,
		Reports: reportRepo,
		Jobs:    jobRepo,

		DocumentUC:    documentUC,
		AnalyzeUC:     analyzeUC,
		RemediationUC: remediationUC,
		BulkUC:        bulkUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

var (
	_ ports.DocumentService    = (*usecase.DocumentUseCase)(nil)
	_ ports.AnalysisService    = (*usecase.AnalyzeUseCase)(nil)
	_ ports.AnalysisRunner     = (*usecase.AnalyzeUseCase)(nil)
	_ ports.RemediationService = (*usecase.RemediationUseCase)(nil)
	_ ports.BulkService        = (*usecase.BulkUseCase)(nil)
	_ ports.BulkRunner         = (*usecase.BulkUseCase)(nil)
)

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/invoice-intake/internal/config"
	"github.com/kirillkom/invoice-intake/internal/core/ports"
	"github.com/kirillkom/invoice-intake/internal/core/usecase"
	"github.com/kirillkom/invoice-intake/internal/extract"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/invoice-intake/internal/infrastructure/textsource"
	"github.com/kirillkom/invoice-intake/internal/validation"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.InvoiceRepository

	IngestUC   ports.InvoiceIngestor
	ProcessUC  ports.InvoiceProcessor
	ReviewUC   ports.CorrectionService
	SnapshotUC ports.SnapshotService
	TrainUC    ports.TrainingService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewInvoiceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	rules, err := loadRules(ctx, cfg, repo)
	if err != nil {
		return nil, fmt.Errorf("load extraction rules: %w", err)
	}
	extractor := extract.New(rules)

	validator := validation.New(validation.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	})

	source := textsource.New(storage)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:   usecase.NewIngestInvoiceUseCase(repo, storage, queue),
		ProcessUC:  usecase.NewProcessInvoiceUseCase(repo, source, extractor, validator),
		ReviewUC:   usecase.NewReviewUseCase(repo, validator),
		SnapshotUC: usecase.NewSnapshotUseCase(repo),
		TrainUC:    usecase.NewTrainingUseCase(repo, cfg.MinTrainingSamples),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// loadRules builds the rule table and folds in the latest trained weights.
// A missing weights row is a fresh install, not an error.
func loadRules(ctx context.Context, cfg config.Config, repo ports.InvoiceRepository) (*extract.RuleSet, error) {
	rules := extract.DefaultRuleSet()
	if cfg.RulesPath != "" {
		loaded, err := extract.Load(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	weights, err := repo.LoadRuleWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rule weights: %w", err)
	}
	if len(weights) > 0 {
		rules.ApplyWeights(weights)
		slog.Info("applied trained rule weights", "rules", len(weights))
	}
	return rules, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/oliviawu/xetra-ruoshi/internal/config"
	"github.com/oliviawu/xetra-ruoshi/internal/dataprocessing"
	"github.com/oliviawu/xetra-ruoshi/internal/infrastructure"
	"github.com/oliviawu/xetra-ruoshi/internal/meta"
	"github.com/oliviawu/xetra-ruoshi/internal/pipeline"
	"github.com/oliviawu/xetra-ruoshi/internal/store"
)

// Application is the assembled batch job: configuration, logging and
// the pipeline with its collaborators, wired once and run to completion.
type Application struct {
	Config *config.Config
	Logger *slog.Logger

	Source store.Gateway
	Target store.Gateway
	Ledger *meta.Ledger
	ETL    *pipeline.ETL

	logCloser io.Closer
}

// New builds the application from configuration. The S3 client is
// created eagerly so credential and endpoint problems surface before
// the run starts.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, closer, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	client, err := store.NewClient(ctx, cfg.S3)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	source := store.NewBucket(client, cfg.S3.SourceBucket, logger)
	target := store.NewBucket(client, cfg.S3.TargetBucket, logger)
	ledger := meta.NewLedger(target, cfg.Meta.Key, logger)
	aggregator := dataprocessing.NewAggregator(logger, cfg.Source, cfg.Target)
	etl := pipeline.New(source, target, ledger, aggregator, cfg.Source, cfg.Target, logger)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Source:    source,
		Target:    target,
		Ledger:    ledger,
		ETL:       etl,
		logCloser: closer,
	}, nil
}

// Run executes one pipeline run under a signal-cancellable context.
// Every log record of the run carries the same generated run ID.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := infrastructure.NewRunID()
	ctx = infrastructure.WithRunID(ctx, runID)

	start := time.Now()
	a.Logger.InfoContext(ctx, "starting report run",
		slog.String("source_bucket", a.Config.S3.SourceBucket),
		slog.String("target_bucket", a.Config.S3.TargetBucket),
		slog.String("format", a.Config.Target.Format))

	if err := a.ETL.Run(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "report run failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}

	a.Logger.InfoContext(ctx, "report run finished",
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

// Close releases the log sink. Call it after Run.
func (a *Application) Close() error {
	if a.logCloser != nil {
		return a.logCloser.Close()
	}
	return nil
}

package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/analysis"
	"github.com/mcbuckeye/regulatoryradar/internal/config"
	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/llm"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/mail"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/scheduler"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/scrapers"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/storage"
	"github.com/mcbuckeye/regulatoryradar/internal/logging"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
	"github.com/mcbuckeye/regulatoryradar/internal/usecase"
)

// Application wires configuration to adapters, use cases, and the job
// scheduler.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	digestJob *usecase.DigestJob
	scheduler ports.Scheduler
}

// New builds a runnable application instance around an open database
// handle.
func New(cfg config.Config, db *sql.DB, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store := storage.NewPostgresStore(db)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := scraper.NewRegistry()
	registry.Register(scrapers.NewFDAGuidances(httpClient, cfg.Scraper.FDA.GuidancesURL,
		baseLogger.With("component", "scraper.fda-guidances")))
	registry.Register(scrapers.NewFDAApprovals(httpClient, cfg.Scraper.FDA.ApprovalsURL,
		baseLogger.With("component", "scraper.fda-approvals")))
	registry.Register(scrapers.NewClinicalTrials(httpClient, cfg.Scraper.ClinicalTrials.BaseURL,
		cfg.Scraper.ClinicalTrials.PageSize,
		baseLogger.With("component", "scraper.clinicaltrials")))
	registry.Register(scrapers.NewPress(httpClient, cfg.Scraper.Press.Feeds,
		baseLogger.With("component", "scraper.press")))

	var generator ports.TextGenerator
	if cfg.Anthropic.APIKey != "" {
		generator = llm.NewAnthropicClient(cfg.Anthropic)
	} else {
		baseLogger.Warn("anthropic api key not configured, analysis falls back to defaults")
	}
	analyzer := analysis.New(generator, baseLogger.With("component", "analyzer"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Registry:         registry,
		Updates:          store,
		Runs:             store,
		Analyzer:         analyzer,
		Logger:           baseLogger.With("component", "pipeline"),
		FallbackKeywords: cfg.Keywords,
	})

	digestJob := usecase.NewDigestJob(usecase.DigestJobDeps{
		Updates:     store,
		Mailer:      mail.NewSMTPMailer(cfg.SMTP),
		Logger:      baseLogger.With("component", "digest"),
		WindowHours: cfg.Digest.WindowHours,
		MaxItems:    cfg.Digest.MaxItems,
	})

	app := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		digestJob: digestJob,
	}

	app.scheduler = scheduler.NewIntervalScheduler(
		time.Duration(cfg.Scraper.IntervalHours)*time.Hour,
		cfg.Digest.Hour,
		app.runScrape,
		app.runDigest,
		baseLogger.With("component", "scheduler"),
	)
	return app
}

// Run starts the scheduler and blocks until the context is canceled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// RunOnce executes a single full scrape, for one-shot invocations.
func (a *Application) RunOnce(ctx context.Context) error {
	run, err := a.pipeline.Run(ctx, domain.ScopeAll, 0)
	if err != nil {
		return err
	}
	if run.Status == domain.RunError {
		a.logger.Error("scrape finished with errors", "run_id", run.ID, "message", run.ErrorMessage)
	}
	return nil
}

func (a *Application) runScrape(ctx context.Context) {
	if _, err := a.pipeline.Run(ctx, domain.ScopeAll, 0); err != nil {
		a.logger.Error("scheduled scrape", "error", err)
	}
}

func (a *Application) runDigest(ctx context.Context) {
	if err := a.digestJob.SendDailyDigests(ctx); err != nil {
		a.logger.Error("scheduled digest", "error", err)
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/analysis"
	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

// enrichmentBatchSize bounds how many pending updates one run analyzes.
const enrichmentBatchSize = 50

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Registry *scraper.Registry
	Updates  ports.UpdateStore
	Runs     ports.RunStore
	Analyzer *analysis.Analyzer
	Logger   *slog.Logger

	// FallbackKeywords are the configured interest terms used when the
	// store has no active therapeutic areas.
	FallbackKeywords []string
}

// Pipeline implements the scrape-ingest-enrich workflow with run-level
// status tracking.
type Pipeline struct {
	registry         *scraper.Registry
	updates          ports.UpdateStore
	runs             ports.RunStore
	analyzer         *analysis.Analyzer
	logger           *slog.Logger
	fallbackKeywords []string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		registry:         deps.Registry,
		updates:          deps.Updates,
		runs:             deps.Runs,
		analyzer:         deps.Analyzer,
		logger:           deps.Logger,
		fallbackKeywords: deps.FallbackKeywords,
	}
}

// Run executes one scrape over the requested scope (domain.ScopeAll or
// a source tag) and always hands back a run record whose status field
// communicates the outcome. runID resumes a pre-created record; pass 0
// to create a fresh one. The returned error is non-nil only when the
// run record itself cannot be created or persisted.
func (p *Pipeline) Run(ctx context.Context, scope string, runID int64) (*domain.ScrapeRun, error) {
	run, err := p.prepareRun(ctx, scope, runID)
	if err != nil {
		return nil, err
	}

	totalFound := 0
	totalNew := 0

	runErr := func() error {
		keywords, err := p.loadKeywords(ctx)
		if err != nil {
			return err
		}
		req := scraper.Request{Keywords: keywords}

		for _, sc := range p.registry.InScope(scope) {
			records := sc.Fetch(ctx, req)
			found, fresh, err := p.ingest(ctx, sc.Source(), records)
			totalFound += found
			totalNew += fresh
			if err != nil {
				return fmt.Errorf("save %s updates: %w", sc.Name(), err)
			}
			p.logger.Info("source processed", "scraper", sc.Name(), "found", found, "new", fresh)
		}

		if totalNew > 0 {
			p.logger.Info("analyzing new updates", "new", totalNew)
			if err := p.EnrichPending(ctx, enrichmentBatchSize); err != nil {
				return err
			}
		}
		return nil
	}()

	// Counts are persisted on the error path too: the inserts that
	// happened before the failure are already durable.
	now := time.Now().UTC()
	run.UpdatesFound = totalFound
	run.NewUpdates = totalNew
	run.CompletedAt = &now
	if runErr != nil {
		run.Status = domain.RunError
		run.ErrorMessage = runErr.Error()
		p.logger.Error("scrape run failed", "run_id", run.ID, "error", runErr)
	} else {
		run.Status = domain.RunCompleted
		p.logger.Info("scrape run completed", "run_id", run.ID, "found", totalFound, "new", totalNew)
	}

	if err := p.runs.UpdateRun(ctx, run); err != nil {
		return run, fmt.Errorf("persist run state: %w", err)
	}
	return run, nil
}

func (p *Pipeline) prepareRun(ctx context.Context, scope string, runID int64) (*domain.ScrapeRun, error) {
	if runID != 0 {
		run, err := p.runs.GetRun(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("resume run %d: %w", runID, err)
		}
		run.Status = domain.RunRunning
		if err := p.runs.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("mark run running: %w", err)
		}
		return run, nil
	}

	run := &domain.ScrapeRun{Source: scope, Status: domain.RunRunning}
	if err := p.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// loadKeywords resolves the active interest terms, preferring the
// store and falling back to the configured defaults.
func (p *Pipeline) loadKeywords(ctx context.Context) ([]string, error) {
	keywords, err := p.updates.TherapeuticKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load therapeutic keywords: %w", err)
	}
	if len(keywords) == 0 {
		keywords = p.fallbackKeywords
	}
	return keywords, nil
}

// ingest maps raw records to canonical entities and commits only
// unseen ones. Calling it again with the same batch converges to zero
// new insertions; existing rows are never modified.
func (p *Pipeline) ingest(ctx context.Context, source string, records []domain.RawUpdate) (int, int, error) {
	found := len(records)
	fresh := 0

	for _, raw := range records {
		if raw.SourceID == "" {
			continue
		}

		title := raw.Title
		if title == "" {
			title = "Unknown"
		}
		updateType := raw.UpdateType
		if updateType == "" {
			updateType = domain.TypeOther
		}

		update := domain.RegulatoryUpdate{
			Source:             source,
			SourceID:           raw.SourceID,
			SourceURL:          raw.SourceURL,
			Title:              title,
			Content:            raw.Content,
			UpdateType:         updateType,
			TherapeuticAreas:   raw.TherapeuticAreas,
			CompaniesMentioned: raw.CompaniesMentioned,
			PublishedDate:      raw.PublishedDate,
			RawPayload:         raw.RawPayload,
		}

		inserted, err := p.updates.InsertUpdate(ctx, &update)
		if err != nil {
			return found, fresh, err
		}
		if inserted {
			fresh++
		}
	}

	return found, fresh, nil
}

// EnrichPending analyzes up to batchCap updates that lack an analysis.
// A failing entity is logged and skipped so the rest of the batch still
// completes; only store-level batch queries surface as errors.
func (p *Pipeline) EnrichPending(ctx context.Context, batchCap int) error {
	keywords, err := p.loadKeywords(ctx)
	if err != nil {
		return err
	}

	pending, err := p.updates.ListUnanalyzed(ctx, batchCap)
	if err != nil {
		return fmt.Errorf("list unanalyzed: %w", err)
	}

	for _, update := range pending {
		result := p.analyzer.Analyze(ctx, update.Title, update.Content, keywords)

		record := domain.UpdateAnalysis{
			UpdateID:       update.ID,
			Summary:        result.Summary,
			RelevanceScore: result.RelevanceScore,
			ImpactLevel:    result.Impact,
			KeyPoints:      result.KeyPoints,
		}
		if err := p.updates.InsertAnalysis(ctx, &record); err != nil {
			p.logger.Error("save analysis", "update_id", update.ID, "error", err)
			continue
		}
		p.logger.Info("analyzed update", "update_id", update.ID, "score", record.RelevanceScore)
	}

	return nil
}

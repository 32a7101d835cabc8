package ports

import (
	"context"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
)

// UpdateStore persists canonical updates, analyses, and digest records.
type UpdateStore interface {
	// InsertUpdate creates the update unless (source, source_id) already
	// exists; it reports whether a row was actually inserted. A racing
	// insert from a concurrent run counts as "not new", never an error.
	InsertUpdate(ctx context.Context, update *domain.RegulatoryUpdate) (bool, error)

	// ListUnanalyzed returns updates lacking an analysis, oldest first,
	// bounded by limit.
	ListUnanalyzed(ctx context.Context, limit int) ([]domain.RegulatoryUpdate, error)

	InsertAnalysis(ctx context.Context, analysis *domain.UpdateAnalysis) error

	// ListRecent returns updates scraped at or after since, newest
	// first, bounded by limit, each paired with its analysis if present.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.EnrichedUpdate, error)

	// TherapeuticKeywords returns the active interest keywords used for
	// registry queries and relevance scoring.
	TherapeuticKeywords(ctx context.Context) ([]string, error)

	// DigestRecipients lists addresses with digest delivery enabled.
	DigestRecipients(ctx context.Context) ([]string, error)

	InsertDigestRecord(ctx context.Context, record *domain.DigestRecord) error
}

// RunStore owns scrape-run records. Only the orchestrator mutates them.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.ScrapeRun) error
	GetRun(ctx context.Context, id int64) (*domain.ScrapeRun, error)
	UpdateRun(ctx context.Context, run *domain.ScrapeRun) error
}

// TextGenerator is a single-shot AI text completion call.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Mailer performs one delivery attempt, no retries.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Scheduler drives registered recurring jobs.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

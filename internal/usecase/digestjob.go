package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/digest"
	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/mail"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

// DigestJobDeps wires the digest delivery job.
type DigestJobDeps struct {
	Updates     ports.UpdateStore
	Mailer      ports.Mailer
	Logger      *slog.Logger
	WindowHours int
	MaxItems    int
}

// DigestJob assembles and delivers the periodic email digest to every
// enabled recipient, recording each delivery outcome.
type DigestJob struct {
	updates     ports.UpdateStore
	mailer      ports.Mailer
	logger      *slog.Logger
	windowHours int
	maxItems    int
}

// NewDigestJob constructs the job from its dependencies.
func NewDigestJob(deps DigestJobDeps) *DigestJob {
	return &DigestJob{
		updates:     deps.Updates,
		mailer:      deps.Mailer,
		logger:      deps.Logger,
		windowHours: deps.WindowHours,
		maxItems:    deps.MaxItems,
	}
}

// SendDailyDigests delivers the digest to all enabled recipients.
// Recipients with no updates in the window are skipped without a
// history record. One recipient failing never blocks the others.
func (j *DigestJob) SendDailyDigests(ctx context.Context) error {
	recipients, err := j.updates.DigestRecipients(ctx)
	if err != nil {
		return fmt.Errorf("load digest recipients: %w", err)
	}
	if len(recipients) == 0 {
		j.logger.Info("no digest recipients enabled")
		return nil
	}

	now := time.Now().UTC()
	since := now.Add(-time.Duration(j.windowHours) * time.Hour)

	enriched, err := j.updates.ListRecent(ctx, since, j.maxItems)
	if err != nil {
		return fmt.Errorf("load recent updates: %w", err)
	}
	if len(enriched) == 0 {
		j.logger.Info("no updates in digest window, skipping send", "since", since)
		return nil
	}

	items := make([]digest.Item, 0, len(enriched))
	ids := make([]int64, 0, len(enriched))
	for _, e := range enriched {
		items = append(items, digest.FromEnriched(e))
		ids = append(ids, e.Update.ID)
	}

	subject := "RegulatoryRadar Daily Digest - " + now.Format("January 2, 2006")

	for _, recipient := range recipients {
		body, count, err := digest.Assemble(recipient, items, now)
		if err != nil {
			j.logger.Error("assemble digest", "recipient", recipient, "error", err)
			continue
		}

		status := domain.DeliverySent
		if err := j.mailer.Send(ctx, recipient, subject, body); err != nil {
			status = domain.DeliveryFailed
			j.logger.Error("send digest",
				"recipient", recipient,
				"category", mail.CategoryOf(err),
				"error", err)
		} else {
			j.logger.Info("digest sent", "recipient", recipient, "updates", count)
		}

		record := domain.DigestRecord{
			Recipient:      recipient,
			UpdateIDs:      ids,
			Content:        body,
			DeliveryStatus: status,
		}
		if err := j.updates.InsertDigestRecord(ctx, &record); err != nil {
			j.logger.Error("record digest history", "recipient", recipient, "error", err)
		}
	}

	return nil
}

package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context)

// IntervalScheduler drives the recurring scrape job on a fixed interval
// and the digest job once per day at a configured UTC hour.
type IntervalScheduler struct {
	scrapeEvery time.Duration
	digestHour  int
	scrape      JobFunc
	digest      JobFunc
	logger      *slog.Logger
	stop        chan struct{}
	stopOnce    sync.Once
	started     bool
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds the scheduler. Either job may be nil to
// disable it.
func NewIntervalScheduler(scrapeEvery time.Duration, digestHour int, scrape, digest JobFunc, logger *slog.Logger) *IntervalScheduler {
	return &IntervalScheduler{
		scrapeEvery: scrapeEvery,
		digestHour:  digestHour,
		scrape:      scrape,
		digest:      digest,
		logger:      logger,
		stop:        make(chan struct{}),
	}
}

// Start launches the job loops. The scrape job fires immediately and
// then on every interval tick; the digest job waits for the next
// occurrence of the configured hour.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true

	if s.scrape != nil {
		go s.runInterval(ctx, s.scrape)
	}
	if s.digest != nil {
		go s.runDaily(ctx, s.digest)
	}
	return nil
}

// Stop halts all job goroutines. The channel stays closed so running
// loops always observe the shutdown; calling Stop again is a no-op.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *IntervalScheduler) runInterval(ctx context.Context, job JobFunc) {
	ticker := time.NewTicker(s.scrapeEvery)
	defer ticker.Stop()

	job(ctx)
	for {
		select {
		case <-ticker.C:
			job(ctx)
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

func (s *IntervalScheduler) runDaily(ctx context.Context, job JobFunc) {
	for {
		wait := untilNextHour(time.Now().UTC(), s.digestHour)
		s.logger.Info("next digest scheduled", "in", wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			job(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

// untilNextHour returns the duration until the next occurrence of the
// given UTC hour, always strictly positive.
func untilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestUntilNextHour(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.February, 10, 5, 30, 0, 0, time.UTC)

	if got := untilNextHour(base, 7); got != 90*time.Minute {
		t.Fatalf("before the hour: got %v", got)
	}
	if got := untilNextHour(base, 5); got != 23*time.Hour+30*time.Minute {
		t.Fatalf("after the hour: got %v", got)
	}

	exact := time.Date(2026, time.February, 10, 7, 0, 0, 0, time.UTC)
	if got := untilNextHour(exact, 7); got != 24*time.Hour {
		t.Fatalf("at the hour: got %v", got)
	}
	if got := untilNextHour(base, 0); got <= 0 {
		t.Fatalf("midnight hour must stay positive, got %v", got)
	}
}

func TestStopHaltsJobsAndIsIdempotent(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var runs atomic.Int32
	s := NewIntervalScheduler(5*time.Millisecond, 7,
		func(context.Context) { runs.Add(1) }, nil, logger)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	time.Sleep(25 * time.Millisecond)
	if runs.Load() == 0 {
		t.Fatal("scrape job never fired")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	// The loop may win one last tick race, then must exit for good.
	time.Sleep(25 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(25 * time.Millisecond)
	if got := runs.Load(); got != settled {
		t.Fatalf("job fired after stop: %d -> %d", settled, got)
	}
}

package domain

import "time"

// RunStatus enumerates the scrape-run state machine:
// queued -> running -> {completed, error}.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// ScopeAll requests every registered source in one run.
const ScopeAll = "all"

// ScrapeRun records one orchestrated execution over a source scope.
// Only the orchestrator mutates it; CompletedAt is set on terminal
// states only.
type ScrapeRun struct {
	ID           int64
	Source       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	UpdatesFound int
	NewUpdates   int
	Status       RunStatus
	ErrorMessage string
}

// DigestRecord captures one digest send attempt. UpdateIDs lists
// exactly the updates handed to the renderer for that send.
type DigestRecord struct {
	ID             int64
	Recipient      string
	SentAt         time.Time
	UpdateIDs      []int64
	Content        string
	DeliveryStatus string
}

// Digest delivery statuses.
const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

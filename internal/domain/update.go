package domain

import "time"

// Source names as stored in the source column.
const (
	SourceFDA            = "fda"
	SourceClinicalTrials = "clinicaltrials"
	SourcePress          = "press"
)

// Update types emitted by the source adapters.
const (
	TypeGuidance      = "guidance"
	TypeApproval      = "approval"
	TypeClinicalTrial = "clinical_trial"
	TypePressRelease  = "press_release"
	TypeOther         = "other"
)

// RawUpdate is the canonical shape produced by every source adapter
// before deduplication. SourceID is scoped to the producing source.
type RawUpdate struct {
	SourceID           string
	Title              string
	Content            string
	SourceURL          string
	UpdateType         string
	PublishedDate      *time.Time
	TherapeuticAreas   []string
	CompaniesMentioned []string
	RawPayload         map[string]any
}

// RegulatoryUpdate is a persisted update, unique per (source, source_id).
// Rows are immutable once created.
type RegulatoryUpdate struct {
	ID                 int64
	Source             string
	SourceID           string
	SourceURL          string
	Title              string
	Content            string
	UpdateType         string
	TherapeuticAreas   []string
	CompaniesMentioned []string
	PublishedDate      *time.Time
	ScrapedAt          time.Time
	RawPayload         map[string]any
}

// ImpactLevel classifies a relevance score into fixed bands.
type ImpactLevel string

const (
	ImpactCritical ImpactLevel = "critical"
	ImpactHigh     ImpactLevel = "high"
	ImpactMedium   ImpactLevel = "medium"
	ImpactLow      ImpactLevel = "low"
	ImpactMinimal  ImpactLevel = "minimal"
)

// UpdateAnalysis holds the AI enrichment for one update (0 or 1 per
// update, immutable after creation). RelevanceScore is always in [1,100].
type UpdateAnalysis struct {
	ID             int64
	UpdateID       int64
	Summary        string
	RelevanceScore int
	ImpactLevel    ImpactLevel
	KeyPoints      []string
	AnalyzedAt     time.Time
}

// EnrichedUpdate pairs an update with its analysis, if any.
type EnrichedUpdate struct {
	Update   RegulatoryUpdate
	Analysis *UpdateAnalysis
}

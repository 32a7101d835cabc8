package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcbuckeye/regulatoryradar/internal/analysis"
	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory ports.UpdateStore keyed on (source, source_id).
type fakeStore struct {
	updates    []domain.RegulatoryUpdate
	seen       map[string]struct{}
	analyses   map[int64]domain.UpdateAnalysis
	keywords   []string
	keywordErr error
	failSource string
	recipients []string
	recent     []domain.EnrichedUpdate
	digests    []domain.DigestRecord
	nextID     int64
}

var _ ports.UpdateStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		seen:     map[string]struct{}{},
		analyses: map[int64]domain.UpdateAnalysis{},
		keywords: []string{"oncology"},
	}
}

func (s *fakeStore) InsertUpdate(_ context.Context, update *domain.RegulatoryUpdate) (bool, error) {
	if s.failSource != "" && update.Source == s.failSource {
		return false, errors.New("connection reset")
	}
	key := update.Source + "|" + update.SourceID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.nextID++
	update.ID = s.nextID
	update.ScrapedAt = time.Now().UTC()
	s.updates = append(s.updates, *update)
	return true, nil
}

func (s *fakeStore) ListUnanalyzed(_ context.Context, limit int) ([]domain.RegulatoryUpdate, error) {
	var pending []domain.RegulatoryUpdate
	for _, u := range s.updates {
		if _, ok := s.analyses[u.ID]; ok {
			continue
		}
		pending = append(pending, u)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *fakeStore) InsertAnalysis(_ context.Context, analysis *domain.UpdateAnalysis) error {
	analysis.ID = int64(len(s.analyses) + 1)
	analysis.AnalyzedAt = time.Now().UTC()
	s.analyses[analysis.UpdateID] = *analysis
	return nil
}

func (s *fakeStore) ListRecent(_ context.Context, _ time.Time, _ int) ([]domain.EnrichedUpdate, error) {
	return s.recent, nil
}

func (s *fakeStore) TherapeuticKeywords(_ context.Context) ([]string, error) {
	if s.keywordErr != nil {
		return nil, s.keywordErr
	}
	return s.keywords, nil
}

func (s *fakeStore) DigestRecipients(_ context.Context) ([]string, error) {
	return s.recipients, nil
}

func (s *fakeStore) InsertDigestRecord(_ context.Context, record *domain.DigestRecord) error {
	record.ID = int64(len(s.digests) + 1)
	record.SentAt = time.Now().UTC()
	s.digests = append(s.digests, *record)
	return nil
}

// fakeRunStore keeps run records in memory.
type fakeRunStore struct {
	runs   map[int64]domain.ScrapeRun
	nextID int64
}

var _ ports.RunStore = (*fakeRunStore)(nil)

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[int64]domain.ScrapeRun{}}
}

func (s *fakeRunStore) CreateRun(_ context.Context, run *domain.ScrapeRun) error {
	s.nextID++
	run.ID = s.nextID
	run.StartedAt = time.Now().UTC()
	s.runs[run.ID] = *run
	return nil
}

func (s *fakeRunStore) GetRun(_ context.Context, id int64) (*domain.ScrapeRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %d not found", id)
	}
	return &run, nil
}

func (s *fakeRunStore) UpdateRun(_ context.Context, run *domain.ScrapeRun) error {
	s.runs[run.ID] = *run
	return nil
}

// fakeScraper returns a fixed batch and remembers the last request.
type fakeScraper struct {
	name    string
	source  string
	records []domain.RawUpdate
	lastReq scraper.Request
}

func (f *fakeScraper) Name() string   { return f.name }
func (f *fakeScraper) Source() string { return f.source }
func (f *fakeScraper) Fetch(_ context.Context, req scraper.Request) []domain.RawUpdate {
	f.lastReq = req
	return f.records
}

func rawUpdate(sourceID, title string) domain.RawUpdate {
	return domain.RawUpdate{SourceID: sourceID, Title: title, UpdateType: domain.TypeOther}
}

func newTestPipeline(store *fakeStore, runs *fakeRunStore, scrapers ...scraper.Scraper) *Pipeline {
	registry := scraper.NewRegistry()
	for _, sc := range scrapers {
		registry.Register(sc)
	}
	return NewPipeline(PipelineDeps{
		Registry: registry,
		Updates:  store,
		Runs:     runs,
		Analyzer: analysis.New(nil, testLogger()),
		Logger:   testLogger(),
	})
}

func TestRunCompletesAndCounts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
			rawUpdate("fda-guidance-a", "Guidance A"),
			rawUpdate("fda-guidance-b", "Guidance B"),
		}},
		&fakeScraper{name: "clinicaltrials", source: domain.SourceClinicalTrials, records: []domain.RawUpdate{
			rawUpdate("NCT00000001", "Trial One"),
		}},
	)

	run, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, run.Status)
	require.Equal(t, 3, run.UpdatesFound)
	require.Equal(t, 3, run.NewUpdates)
	require.NotNil(t, run.CompletedAt)
	require.Empty(t, run.ErrorMessage)

	// Every new update got an analysis in the same run.
	require.Len(t, store.analyses, 3)
	for _, a := range store.analyses {
		require.Equal(t, 50, a.RelevanceScore)
		require.Equal(t, domain.ImpactMedium, a.ImpactLevel)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	sc := &fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
		rawUpdate("fda-guidance-a", "Guidance A"),
	}}
	p := newTestPipeline(store, runs, sc)

	first, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, 1, first.NewUpdates)

	second, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, second.Status)
	require.Equal(t, 1, second.UpdatesFound)
	require.Zero(t, second.NewUpdates)
	require.Len(t, store.updates, 1)
}

func TestRunSkipsRecordsWithoutSourceID(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
			rawUpdate("", "No Identifier"),
			rawUpdate("fda-guidance-a", ""),
		}},
	)

	run, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, 2, run.UpdatesFound)
	require.Equal(t, 1, run.NewUpdates)
	require.Equal(t, "Unknown", store.updates[0].Title)
}

func TestRunErrorPersistsPartialCounts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failSource = domain.SourceClinicalTrials
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
			rawUpdate("fda-guidance-a", "Guidance A"),
			rawUpdate("fda-guidance-b", "Guidance B"),
		}},
		&fakeScraper{name: "clinicaltrials", source: domain.SourceClinicalTrials, records: []domain.RawUpdate{
			rawUpdate("NCT00000001", "Trial One"),
		}},
	)

	run, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err, "a failed run still returns its record")
	require.Equal(t, domain.RunError, run.Status)
	require.Contains(t, run.ErrorMessage, "clinicaltrials")
	require.NotNil(t, run.CompletedAt)

	// The successful source's counts survive the failure.
	require.Equal(t, 3, run.UpdatesFound)
	require.Equal(t, 2, run.NewUpdates)

	stored, getErr := runs.GetRun(context.Background(), run.ID)
	require.NoError(t, getErr)
	require.Equal(t, domain.RunError, stored.Status)
	require.Equal(t, 2, stored.NewUpdates)
}

func TestRunScopeFiltersSources(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
			rawUpdate("fda-guidance-a", "Guidance A"),
		}},
		&fakeScraper{name: "clinicaltrials", source: domain.SourceClinicalTrials, records: []domain.RawUpdate{
			rawUpdate("NCT00000001", "Trial One"),
		}},
	)

	run, err := p.Run(context.Background(), domain.SourceFDA, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, run.Status)
	require.Equal(t, 1, run.UpdatesFound)
	require.Len(t, store.updates, 1)
	require.Equal(t, domain.SourceFDA, store.updates[0].Source)
}

func TestRunKeywordsFromStore(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.keywords = []string{"cardiology"}
	runs := newFakeRunStore()
	sc := &fakeScraper{name: "clinicaltrials", source: domain.SourceClinicalTrials}
	p := newTestPipeline(store, runs, sc)

	_, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"cardiology"}, sc.lastReq.Keywords)
}

func TestRunFallsBackToConfiguredKeywords(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.keywords = nil
	runs := newFakeRunStore()
	sc := &fakeScraper{name: "clinicaltrials", source: domain.SourceClinicalTrials}

	registry := scraper.NewRegistry()
	registry.Register(sc)
	p := NewPipeline(PipelineDeps{
		Registry:         registry,
		Updates:          store,
		Runs:             runs,
		Analyzer:         analysis.New(nil, testLogger()),
		Logger:           testLogger(),
		FallbackKeywords: []string{"oncology", "immunotherapy"},
	})

	run, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, run.Status)
	require.Equal(t, []string{"oncology", "immunotherapy"}, sc.lastReq.Keywords)
}

func TestRunKeywordFailureFailsRun(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.keywordErr = errors.New("relation does not exist")
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA},
	)

	run, err := p.Run(context.Background(), domain.ScopeAll, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RunError, run.Status)
	require.Contains(t, run.ErrorMessage, "therapeutic keywords")
}

func TestRunResumesExistingRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	queued := &domain.ScrapeRun{Source: domain.ScopeAll, Status: domain.RunQueued}
	require.NoError(t, runs.CreateRun(context.Background(), queued))

	p := newTestPipeline(store, runs,
		&fakeScraper{name: "fda-guidances", source: domain.SourceFDA, records: []domain.RawUpdate{
			rawUpdate("fda-guidance-a", "Guidance A"),
		}},
	)

	run, err := p.Run(context.Background(), domain.ScopeAll, queued.ID)
	require.NoError(t, err)
	require.Equal(t, queued.ID, run.ID)
	require.Equal(t, domain.RunCompleted, run.Status)
}

func TestRunUnknownRunIDErrors(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newFakeStore(), newFakeRunStore())
	_, err := p.Run(context.Background(), domain.ScopeAll, 42)
	require.Error(t, err)
}

func TestEnrichPendingSkipsAnalyzed(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	runs := newFakeRunStore()
	p := newTestPipeline(store, runs)

	update := domain.RegulatoryUpdate{Source: domain.SourceFDA, SourceID: "fda-guidance-a", Title: "Guidance A"}
	_, err := store.InsertUpdate(context.Background(), &update)
	require.NoError(t, err)

	require.NoError(t, p.EnrichPending(context.Background(), 10))
	require.Len(t, store.analyses, 1)

	// A second pass finds nothing to do.
	require.NoError(t, p.EnrichPending(context.Background(), 10))
	require.Len(t, store.analyses, 1)
}

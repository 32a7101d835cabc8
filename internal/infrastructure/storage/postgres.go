package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresStore implements ports.UpdateStore and ports.RunStore.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.UpdateStore = (*PostgresStore)(nil)
var _ ports.RunStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var updateColumns = []string{
	"id", "source", "source_id", "source_url", "title", "content",
	"update_type", "therapeutic_areas", "companies_mentioned",
	"published_date", "scraped_at", "raw_data",
}

// InsertUpdate creates the row unless (source, source_id) exists. A
// conflicting insert — including one from a concurrent run — reports
// false without error.
func (s *PostgresStore) InsertUpdate(ctx context.Context, update *domain.RegulatoryUpdate) (bool, error) {
	payload := update.RawPayload
	if payload == nil {
		payload = map[string]any{}
	}
	rawData, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("marshal raw payload: %w", err)
	}

	query, args, err := s.sb.Insert("regulatory_updates").
		Columns("source", "source_id", "source_url", "title", "content",
			"update_type", "therapeutic_areas", "companies_mentioned",
			"published_date", "raw_data").
		Values(update.Source, update.SourceID, update.SourceURL, update.Title,
			update.Content, update.UpdateType,
			pq.Array(update.TherapeuticAreas), pq.Array(update.CompaniesMentioned),
			update.PublishedDate, rawData).
		Suffix("ON CONFLICT (source, source_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert update: %w", err)
	}

	err = s.db.QueryRowContext(ctx, query, args...).Scan(&update.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert update: %w", err)
	}
	return true, nil
}

// ListUnanalyzed returns updates with no analysis row, oldest first.
func (s *PostgresStore) ListUnanalyzed(ctx context.Context, limit int) ([]domain.RegulatoryUpdate, error) {
	cols := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		cols[i] = "u." + c
	}

	query, args, err := s.sb.Select(cols...).
		From("regulatory_updates u").
		LeftJoin("update_analyses a ON a.update_id = u.id").
		Where("a.id IS NULL").
		OrderBy("u.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unanalyzed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unanalyzed: %w", err)
	}
	defer rows.Close()

	var updates []domain.RegulatoryUpdate
	for rows.Next() {
		update, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return updates, nil
}

// InsertAnalysis creates the single analysis row for an update.
func (s *PostgresStore) InsertAnalysis(ctx context.Context, analysis *domain.UpdateAnalysis) error {
	query, args, err := s.sb.Insert("update_analyses").
		Columns("update_id", "summary", "relevance_score", "impact_level", "key_points").
		Values(analysis.UpdateID, analysis.Summary, analysis.RelevanceScore,
			string(analysis.ImpactLevel), pq.Array(analysis.KeyPoints)).
		Suffix("RETURNING id, analyzed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert analysis: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&analysis.ID, &analysis.AnalyzedAt); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// ListRecent returns updates scraped in the window, newest first, each
// with its analysis when present.
func (s *PostgresStore) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.EnrichedUpdate, error) {
	cols := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		cols[i] = "u." + c
	}
	cols = append(cols,
		"a.id", "a.summary", "a.relevance_score", "a.impact_level", "a.key_points", "a.analyzed_at")

	query, args, err := s.sb.Select(cols...).
		From("regulatory_updates u").
		LeftJoin("update_analyses a ON a.update_id = u.id").
		Where(sq.GtOrEq{"u.scraped_at": since}).
		OrderBy("u.scraped_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var enriched []domain.EnrichedUpdate
	for rows.Next() {
		var (
			update       domain.RegulatoryUpdate
			areas        pq.StringArray
			companies    pq.StringArray
			published    sql.NullTime
			rawData      []byte
			analysisID   sql.NullInt64
			summary      sql.NullString
			score        sql.NullInt64
			impact       sql.NullString
			keyPoints    pq.StringArray
			analyzedAt   sql.NullTime
		)

		err := rows.Scan(
			&update.ID, &update.Source, &update.SourceID, &update.SourceURL,
			&update.Title, &update.Content, &update.UpdateType,
			&areas, &companies, &published, &update.ScrapedAt, &rawData,
			&analysisID, &summary, &score, &impact, &keyPoints, &analyzedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recent row: %w", err)
		}

		finishUpdate(&update, areas, companies, published, rawData)

		item := domain.EnrichedUpdate{Update: update}
		if analysisID.Valid {
			item.Analysis = &domain.UpdateAnalysis{
				ID:             analysisID.Int64,
				UpdateID:       update.ID,
				Summary:        summary.String,
				RelevanceScore: int(score.Int64),
				ImpactLevel:    domain.ImpactLevel(impact.String),
				KeyPoints:      keyPoints,
				AnalyzedAt:     analyzedAt.Time,
			}
		}
		enriched = append(enriched, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return enriched, nil
}

// TherapeuticKeywords collects the active interest terms (area names
// plus their keyword lists, lowercased and deduplicated). An empty
// result is valid; the caller supplies its own fallback.
func (s *PostgresStore) TherapeuticKeywords(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("name", "keywords").
		From("user_therapeutic_areas").
		Where(sq.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keywords query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	var keywords []string
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for rows.Next() {
		var name string
		var list pq.StringArray
		if err := rows.Scan(&name, &list); err != nil {
			return nil, fmt.Errorf("scan keywords row: %w", err)
		}
		for _, kw := range list {
			add(kw)
		}
		add(name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return keywords, nil
}

// DigestRecipients lists addresses with digest delivery enabled.
func (s *PostgresStore) DigestRecipients(ctx context.Context) ([]string, error) {
	query, args, err := s.sb.Select("email").
		From("users").
		Where(sq.Eq{"digest_enabled": true}).
		OrderBy("email").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recipients query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return recipients, nil
}

// InsertDigestRecord stores one send attempt.
func (s *PostgresStore) InsertDigestRecord(ctx context.Context, record *domain.DigestRecord) error {
	query, args, err := s.sb.Insert("digest_history").
		Columns("recipient", "update_ids", "email_content", "delivery_status").
		Values(record.Recipient, pq.Array(record.UpdateIDs), record.Content, record.DeliveryStatus).
		Suffix("RETURNING id, sent_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert digest record: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&record.ID, &record.SentAt); err != nil {
		return fmt.Errorf("insert digest record: %w", err)
	}
	return nil
}

// CreateRun inserts a fresh run record.
func (s *PostgresStore) CreateRun(ctx context.Context, run *domain.ScrapeRun) error {
	query, args, err := s.sb.Insert("scrape_runs").
		Columns("source", "status").
		Values(run.Source, string(run.Status)).
		Suffix("RETURNING id, started_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert run: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.StartedAt); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun loads a run by id; a missing id is an error.
func (s *PostgresStore) GetRun(ctx context.Context, id int64) (*domain.ScrapeRun, error) {
	query, args, err := s.sb.Select("id", "source", "started_at", "completed_at",
		"updates_found", "new_updates", "status", "error_message").
		From("scrape_runs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get run: %w", err)
	}

	var (
		run          domain.ScrapeRun
		completedAt  sql.NullTime
		errorMessage sql.NullString
		status       string
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ID, &run.Source, &run.StartedAt, &completedAt,
		&run.UpdatesFound, &run.NewUpdates, &status, &errorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}

	run.Status = domain.RunStatus(status)
	run.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// UpdateRun writes the mutable run fields.
func (s *PostgresStore) UpdateRun(ctx context.Context, run *domain.ScrapeRun) error {
	query, args, err := s.sb.Update("scrape_runs").
		Set("status", string(run.Status)).
		Set("completed_at", run.CompletedAt).
		Set("updates_found", run.UpdatesFound).
		Set("new_updates", run.NewUpdates).
		Set("error_message", run.ErrorMessage).
		Where(sq.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update run: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update run %d: %w", run.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpdate(row rowScanner) (domain.RegulatoryUpdate, error) {
	var (
		update    domain.RegulatoryUpdate
		areas     pq.StringArray
		companies pq.StringArray
		published sql.NullTime
		rawData   []byte
	)

	err := row.Scan(
		&update.ID, &update.Source, &update.SourceID, &update.SourceURL,
		&update.Title, &update.Content, &update.UpdateType,
		&areas, &companies, &published, &update.ScrapedAt, &rawData,
	)
	if err != nil {
		return update, fmt.Errorf("scan update row: %w", err)
	}

	finishUpdate(&update, areas, companies, published, rawData)
	return update, nil
}

func finishUpdate(update *domain.RegulatoryUpdate, areas, companies pq.StringArray, published sql.NullTime, rawData []byte) {
	update.TherapeuticAreas = areas
	update.CompaniesMentioned = companies
	if published.Valid {
		t := published.Time
		update.PublishedDate = &t
	}
	if len(rawData) > 0 {
		_ = json.Unmarshal(rawData, &update.RawPayload)
	}
}

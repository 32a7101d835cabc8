package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

const ctStatusFilter = "RECRUITING,NOT_YET_RECRUITING,ACTIVE_NOT_RECRUITING"

const ctFields = "NCTId,BriefTitle,OverallStatus,Condition,LeadSponsorName," +
	"StartDate,LastUpdatePostDate,Phase,EnrollmentCount,BriefSummary," +
	"InterventionName"

var defaultTrialKeywords = []string{"oncology", "cancer", "tumor", "immunotherapy"}

var ctDateFormats = []string{"2006-01-02", "2006-01", "January 2, 2006", "January 2006"}

// ClinicalTrials queries the ClinicalTrials.gov v2 studies API for
// active trials matching the caller's interest keywords.
type ClinicalTrials struct {
	client   *http.Client
	baseURL  string
	pageSize int
	logger   *slog.Logger
}

var _ scraper.Scraper = (*ClinicalTrials)(nil)

// NewClinicalTrials wires an HTTP client; a nil client gets a 30s
// timeout and pageSize defaults to 20.
func NewClinicalTrials(client *http.Client, baseURL string, pageSize int, logger *slog.Logger) *ClinicalTrials {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &ClinicalTrials{client: client, baseURL: baseURL, pageSize: pageSize, logger: logger}
}

// Name identifies the adapter.
func (c *ClinicalTrials) Name() string { return "clinicaltrials" }

// Source tags persisted updates.
func (c *ClinicalTrials) Source() string { return domain.SourceClinicalTrials }

// Fetch runs one bounded search; API failures yield an empty result and
// a malformed study never aborts its siblings.
func (c *ClinicalTrials) Fetch(ctx context.Context, req scraper.Request) []domain.RawUpdate {
	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = defaultTrialKeywords
	}

	query := url.Values{}
	query.Set("query.term", strings.Join(keywords, " OR "))
	query.Set("filter.overallStatus", ctStatusFilter)
	query.Set("sort", "LastUpdatePostDate:desc")
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	query.Set("format", "json")
	query.Set("fields", ctFields)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		c.logger.Error("build trials request", "error", err)
		return nil
	}
	httpReq.Header.Set("User-Agent", "RegulatoryRadar/1.0")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("trials request", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("trials request", "status", resp.Status)
		return nil
	}

	var payload struct {
		Studies []json.RawMessage `json:"studies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error("decode trials response", "error", err)
		return nil
	}

	results := make([]domain.RawUpdate, 0, len(payload.Studies))
	for _, raw := range payload.Studies {
		record, err := c.mapStudy(raw)
		if err != nil {
			c.logger.Error("parse study", "error", err)
			continue
		}
		if record == nil {
			continue
		}
		results = append(results, *record)
	}

	c.logger.Info("fetched clinical trials", "count", len(results))
	return results
}

type ctStudy struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus   string `json:"overallStatus"`
			StartDateStruct struct {
				Date string `json:"date"`
			} `json:"startDateStruct"`
			LastUpdatePostDateStruct struct {
				Date string `json:"date"`
			} `json:"lastUpdatePostDateStruct"`
		} `json:"statusModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		SponsorCollaboratorsModule struct {
			LeadSponsor struct {
				Name string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
		DesignModule struct {
			Phases         []string `json:"phases"`
			EnrollmentInfo struct {
				Count int `json:"count"`
			} `json:"enrollmentInfo"`
		} `json:"designModule"`
		DescriptionModule struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		ArmsInterventionsModule struct {
			Interventions []struct {
				Name string `json:"name"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
	} `json:"protocolSection"`
}

// mapStudy flattens the nested v2 schema into the canonical shape.
// Missing fields degrade to empty values; a study without an NCT id is
// dropped (nil, nil).
func (c *ClinicalTrials) mapStudy(raw json.RawMessage) (*domain.RawUpdate, error) {
	var study ctStudy
	if err := json.Unmarshal(raw, &study); err != nil {
		return nil, fmt.Errorf("unmarshal study: %w", err)
	}

	protocol := study.ProtocolSection
	nctID := protocol.IdentificationModule.NCTID
	if nctID == "" {
		return nil, nil
	}

	title := protocol.IdentificationModule.BriefTitle
	if title == "" {
		title = "Unknown Trial"
	}

	status := protocol.StatusModule.OverallStatus
	if status == "" {
		status = "Unknown"
	}

	conditions := protocol.ConditionsModule.Conditions
	conditionsStr := "Not specified"
	if len(conditions) > 0 {
		conditionsStr = strings.Join(conditions, ", ")
	}

	sponsor := protocol.SponsorCollaboratorsModule.LeadSponsor.Name

	phaseStr := "Not specified"
	if len(protocol.DesignModule.Phases) > 0 {
		phaseStr = strings.Join(protocol.DesignModule.Phases, ", ")
	}

	enrollment := protocol.DesignModule.EnrollmentInfo.Count

	var interventionNames []string
	for _, iv := range protocol.ArmsInterventionsModule.Interventions {
		if iv.Name != "" {
			interventionNames = append(interventionNames, iv.Name)
		}
	}
	interventionsStr := "Not specified"
	if len(interventionNames) > 0 {
		interventionsStr = strings.Join(interventionNames, ", ")
	}

	startDateStr := protocol.StatusModule.StartDateStruct.Date
	startDate := parseTrialDate(startDateStr)
	lastUpdate := parseTrialDate(protocol.StatusModule.LastUpdatePostDateStruct.Date)

	parts := []string{
		"Status: " + status,
		"Phase: " + phaseStr,
		"Conditions: " + conditionsStr,
	}
	if sponsor != "" {
		parts = append(parts, "Sponsor: "+sponsor)
	}
	if enrollment > 0 {
		parts = append(parts, fmt.Sprintf("Enrollment: %d", enrollment))
	}
	parts = append(parts, "Interventions: "+interventionsStr)
	if startDateStr != "" {
		parts = append(parts, "Start Date: "+startDateStr)
	}
	if protocol.DescriptionModule.BriefSummary != "" {
		parts = append(parts, "Summary: "+protocol.DescriptionModule.BriefSummary)
	}

	published := lastUpdate
	if published == nil {
		published = startDate
	}

	var companies []string
	if sponsor != "" {
		companies = append(companies, sponsor)
	}

	areas := conditions
	if len(areas) > 5 {
		areas = areas[:5]
	}

	return &domain.RawUpdate{
		SourceID:           nctID,
		Title:              "Clinical Trial: " + title,
		Content:            strings.Join(parts, "; "),
		SourceURL:          "https://clinicaltrials.gov/study/" + nctID,
		UpdateType:         domain.TypeClinicalTrial,
		PublishedDate:      published,
		TherapeuticAreas:   areas,
		CompaniesMentioned: companies,
		RawPayload: map[string]any{
			"nct_id":         nctID,
			"overall_status": status,
			"phase":          phaseStr,
			"conditions":     conditions,
			"lead_sponsor":   sponsor,
			"enrollment":     enrollment,
			"interventions":  interventionNames,
		},
	}, nil
}

func parseTrialDate(text string) *time.Time {
	if text == "" {
		return nil
	}
	for _, format := range ctDateFormats {
		if parsed, err := time.Parse(format, text); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

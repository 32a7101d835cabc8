package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

const trialsResponse = `{
  "studies": [
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT01234567", "briefTitle": "CAR-T Study"},
        "statusModule": {
          "overallStatus": "RECRUITING",
          "startDateStruct": {"date": "2025-06"},
          "lastUpdatePostDateStruct": {"date": "2026-02-10"}
        },
        "conditionsModule": {"conditions": ["Lymphoma", "Leukemia"]},
        "sponsorCollaboratorsModule": {"leadSponsor": {"name": "Acme Biotech"}},
        "designModule": {"phases": ["PHASE2"], "enrollmentInfo": {"count": 120}},
        "descriptionModule": {"briefSummary": "A study of CAR-T therapy."},
        "armsInterventionsModule": {"interventions": [{"name": "ACME-101"}]}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"briefTitle": "No Identifier"}
      }
    },
    {"protocolSection": {"identificationModule": {"nctId": ["bogus"]}}}
  ]
}`

func TestClinicalTrialsFetch(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(trialsResponse))
	}))
	defer server.Close()

	sc := NewClinicalTrials(server.Client(), server.URL, 20, testLogger())
	records := sc.Fetch(context.Background(), scraper.Request{Keywords: []string{"lymphoma", "car-t"}})

	if gotQuery.Get("query.term") != "lymphoma OR car-t" {
		t.Fatalf("unexpected query.term: %s", gotQuery.Get("query.term"))
	}
	if gotQuery.Get("filter.overallStatus") != ctStatusFilter {
		t.Fatalf("unexpected status filter: %s", gotQuery.Get("filter.overallStatus"))
	}
	if gotQuery.Get("pageSize") != "20" {
		t.Fatalf("unexpected pageSize: %s", gotQuery.Get("pageSize"))
	}
	if gotQuery.Get("sort") != "LastUpdatePostDate:desc" {
		t.Fatalf("unexpected sort: %s", gotQuery.Get("sort"))
	}

	// The study without an NCT id is dropped and the malformed one is
	// skipped without aborting the batch.
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.SourceID != "NCT01234567" {
		t.Fatalf("unexpected source id: %s", rec.SourceID)
	}
	if rec.Title != "Clinical Trial: CAR-T Study" {
		t.Fatalf("unexpected title: %s", rec.Title)
	}
	if rec.SourceURL != "https://clinicaltrials.gov/study/NCT01234567" {
		t.Fatalf("unexpected source url: %s", rec.SourceURL)
	}
	if !strings.Contains(rec.Content, "Status: RECRUITING") {
		t.Fatalf("content missing status: %s", rec.Content)
	}
	if !strings.Contains(rec.Content, "Enrollment: 120") {
		t.Fatalf("content missing enrollment: %s", rec.Content)
	}
	if rec.PublishedDate == nil || rec.PublishedDate.Year() != 2026 {
		t.Fatalf("expected last update date, got %v", rec.PublishedDate)
	}
	if len(rec.TherapeuticAreas) != 2 || rec.TherapeuticAreas[0] != "Lymphoma" {
		t.Fatalf("unexpected areas: %v", rec.TherapeuticAreas)
	}
	if len(rec.CompaniesMentioned) != 1 || rec.CompaniesMentioned[0] != "Acme Biotech" {
		t.Fatalf("unexpected companies: %v", rec.CompaniesMentioned)
	}
	if rec.RawPayload["nct_id"] != "NCT01234567" {
		t.Fatalf("unexpected payload: %v", rec.RawPayload)
	}
}

func TestClinicalTrialsDefaultKeywords(t *testing.T) {
	t.Parallel()

	var gotTerm string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTerm = r.URL.Query().Get("query.term")
		_, _ = w.Write([]byte(`{"studies": []}`))
	}))
	defer server.Close()

	sc := NewClinicalTrials(server.Client(), server.URL, 0, testLogger())
	sc.Fetch(context.Background(), scraper.Request{})

	if gotTerm != strings.Join(defaultTrialKeywords, " OR ") {
		t.Fatalf("expected default keywords, got %s", gotTerm)
	}
}

func TestClinicalTrialsServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sc := NewClinicalTrials(server.Client(), server.URL, 20, testLogger())
	if records := sc.Fetch(context.Background(), testRequest()); len(records) != 0 {
		t.Fatalf("expected no records on server error, got %d", len(records))
	}
}

func TestParseTrialDate(t *testing.T) {
	t.Parallel()

	if got := parseTrialDate("2025-06"); got == nil || got.Month() != 6 {
		t.Fatalf("unexpected month-only date: %v", got)
	}
	if got := parseTrialDate("January 2026"); got == nil || got.Year() != 2026 {
		t.Fatalf("unexpected month-year date: %v", got)
	}
	if got := parseTrialDate("soon"); got != nil {
		t.Fatalf("expected nil for garbage, got %v", got)
	}
}

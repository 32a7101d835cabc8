package scrapers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

const (
	fallbackCap      = 30
	minGuidanceTitle = 10
	minApprovalTitle = 5
)

var hrefKeywords = []string{"guidance", "drug", "fda"}

// FDAGuidances scrapes the FDA drug guidances listing page. The page is
// row-oriented on good days; when the table is missing or restyled the
// adapter degrades to scanning anchors inside the content region.
type FDAGuidances struct {
	client  *http.Client
	pageURL string
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ scraper.Scraper = (*FDAGuidances)(nil)

// NewFDAGuidances wires an HTTP client; a nil client gets a 30s timeout.
func NewFDAGuidances(client *http.Client, pageURL string, logger *slog.Logger) *FDAGuidances {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &FDAGuidances{
		client:  client,
		pageURL: pageURL,
		baseURL: originOf(pageURL),
		limiter: rate.NewLimiter(rate.Every(courtesyDelay), 1),
		logger:  logger,
	}
}

// Name identifies the adapter.
func (f *FDAGuidances) Name() string { return "fda-guidances" }

// Source tags persisted updates.
func (f *FDAGuidances) Source() string { return domain.SourceFDA }

// Fetch returns guidance records; transport and parse failures are
// logged and yield an empty result so sibling sources continue.
func (f *FDAGuidances) Fetch(ctx context.Context, _ scraper.Request) []domain.RawUpdate {
	doc, err := fetchDocument(ctx, f.client, f.pageURL)
	if err != nil {
		f.logger.Error("fetch guidances page", "error", err)
		return nil
	}

	area := contentArea(doc)

	results := f.parseTable(ctx, area)
	if len(results) == 0 {
		results = f.parseAnchors(area)
	}

	f.logger.Info("scraped fda guidances", "count", len(results))
	return results
}

// parseTable treats the first row as a header and each later row with
// at least two cells as one guidance.
func (f *FDAGuidances) parseTable(ctx context.Context, area *goquery.Selection) []domain.RawUpdate {
	var results []domain.RawUpdate

	area.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		link := cells.First().Find("a").First()
		if link.Length() == 0 {
			return true
		}

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		href = absolutize(f.baseURL, href)

		var published *time.Time
		if cells.Length() >= 3 {
			published = parsePageDate(cells.Last().Text())
		}

		sourceID := lastPathSegment(href)
		if sourceID == "" {
			sourceID = slug(title, 100)
		}

		var parts []string
		cells.Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if text != "" && text != title {
				parts = append(parts, text)
			}
		})
		content := strings.Join(parts, " ")
		if content == "" {
			content = "FDA Guidance: " + title
		}

		results = append(results, domain.RawUpdate{
			SourceID:      "fda-guidance-" + sourceID,
			Title:         title,
			Content:       content,
			SourceURL:     href,
			UpdateType:    domain.TypeGuidance,
			PublishedDate: published,
		})

		// Courtesy pause per emitted record so listing pages are not
		// hammered in a tight loop.
		if err := f.limiter.Wait(ctx); err != nil {
			return false
		}
		return true
	})

	return results
}

// parseAnchors is the degraded strategy: any anchor in the content
// region with a long-enough title and a guidance-looking href counts,
// deduplicated by exact title and capped to bound noise.
func (f *FDAGuidances) parseAnchors(area *goquery.Selection) []domain.RawUpdate {
	var results []domain.RawUpdate
	seen := map[string]struct{}{}

	area.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		title := strings.TrimSpace(link.Text())
		if len(title) < minGuidanceTitle {
			return true
		}
		if _, ok := seen[title]; ok {
			return true
		}

		href, _ := link.Attr("href")
		if href == "" || !containsAnyKeyword(href) {
			return true
		}
		href = absolutize(f.baseURL, href)

		seen[title] = struct{}{}
		sourceID := lastPathSegment(href)
		if sourceID == "" {
			sourceID = slug(title, 100)
		}

		content := strings.TrimSpace(link.Parent().Text())
		if content == "" || content == title {
			content = "FDA Guidance: " + title
		}

		results = append(results, domain.RawUpdate{
			SourceID:   "fda-guidance-" + sourceID,
			Title:      title,
			Content:    content,
			SourceURL:  href,
			UpdateType: domain.TypeGuidance,
		})

		return len(results) < fallbackCap
	})

	return results
}

// FDAApprovals scrapes the novel drug approvals listing, which renders
// one or more tables with per-year columns that shift around.
type FDAApprovals struct {
	client  *http.Client
	pageURL string
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ scraper.Scraper = (*FDAApprovals)(nil)

// NewFDAApprovals wires an HTTP client; a nil client gets a 30s timeout.
func NewFDAApprovals(client *http.Client, pageURL string, logger *slog.Logger) *FDAApprovals {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &FDAApprovals{
		client:  client,
		pageURL: pageURL,
		baseURL: originOf(pageURL),
		limiter: rate.NewLimiter(rate.Every(courtesyDelay), 1),
		logger:  logger,
	}
}

// Name identifies the adapter.
func (f *FDAApprovals) Name() string { return "fda-approvals" }

// Source tags persisted updates.
func (f *FDAApprovals) Source() string { return domain.SourceFDA }

// Fetch returns approval records; failures degrade to an empty result.
func (f *FDAApprovals) Fetch(ctx context.Context, _ scraper.Request) []domain.RawUpdate {
	doc, err := fetchDocument(ctx, f.client, f.pageURL)
	if err != nil {
		f.logger.Error("fetch approvals page", "error", err)
		return nil
	}

	area := contentArea(doc)

	var results []domain.RawUpdate
	tables := area.Find("table")
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		parsed, ok := f.parseApprovalTable(ctx, table)
		results = append(results, parsed...)
		return ok
	})

	if tables.Length() == 0 {
		results = f.parseItems(area)
	}

	f.logger.Info("scraped fda approvals", "count", len(results))
	return results
}

func (f *FDAApprovals) parseApprovalTable(ctx context.Context, table *goquery.Selection) ([]domain.RawUpdate, bool) {
	headerRow := table.Find("tr").First()
	if headerRow.Length() == 0 {
		return nil, true
	}

	var headers []string
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
	})

	var results []domain.RawUpdate
	cancelled := false

	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		drugName := ""
		linkHref := ""
		if link := cells.First().Find("a").First(); link.Length() > 0 {
			drugName = strings.TrimSpace(link.Text())
			linkHref, _ = link.Attr("href")
		} else {
			drugName = strings.TrimSpace(cells.First().Text())
		}
		if drugName == "" {
			return true
		}
		linkHref = absolutize(f.baseURL, linkHref)

		ingredient := strings.TrimSpace(cells.Eq(1).Text())

		var parts []string
		cells.Each(func(j int, cell *goquery.Selection) {
			name := fmt.Sprintf("Column %d", j+1)
			if j < len(headers) && headers[j] != "" {
				name = headers[j]
			}
			if text := strings.TrimSpace(cell.Text()); text != "" {
				parts = append(parts, name+": "+text)
			}
		})
		content := strings.Join(parts, "; ")
		if content == "" {
			content = "Novel drug approval: " + drugName
		}

		dateText := ""
		for j, h := range headers {
			if strings.Contains(h, "date") && j < cells.Length() {
				dateText = strings.TrimSpace(cells.Eq(j).Text())
				break
			}
		}
		if dateText == "" && cells.Length() > 2 {
			dateText = strings.TrimSpace(cells.Last().Text())
		}

		title := "FDA Approval: " + drugName
		if ingredient != "" {
			title = fmt.Sprintf("FDA Approval: %s (%s)", drugName, ingredient)
		}

		sourceURL := linkHref
		if sourceURL == "" {
			sourceURL = f.pageURL
		}

		results = append(results, domain.RawUpdate{
			SourceID:      "fda-approval-" + slug(drugName, 100),
			Title:         title,
			Content:       content,
			SourceURL:     sourceURL,
			UpdateType:    domain.TypeApproval,
			PublishedDate: parsePageDate(dateText),
		})

		if err := f.limiter.Wait(ctx); err != nil {
			cancelled = true
			return false
		}
		return true
	})

	return results, !cancelled
}

// parseItems is the no-tables fallback: list items and cards with a
// linked title, capped like the guidances fallback.
func (f *FDAApprovals) parseItems(area *goquery.Selection) []domain.RawUpdate {
	var results []domain.RawUpdate
	seen := map[string]struct{}{}

	area.Find("li, div, article").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find("a").First()
		if link.Length() == 0 {
			return true
		}

		title := strings.TrimSpace(link.Text())
		if len(title) < minApprovalTitle {
			return true
		}
		if _, ok := seen[title]; ok {
			return true
		}

		href, _ := link.Attr("href")
		href = absolutize(f.baseURL, href)
		seen[title] = struct{}{}

		content := strings.TrimSpace(item.Text())
		if content == "" {
			content = "Novel drug approval: " + title
		}

		results = append(results, domain.RawUpdate{
			SourceID:   "fda-approval-" + slug(title, 100),
			Title:      "FDA Approval: " + title,
			Content:    content,
			SourceURL:  href,
			UpdateType: domain.TypeApproval,
		})

		return len(results) < fallbackCap
	})

	return results
}

func containsAnyKeyword(href string) bool {
	lower := strings.ToLower(href)
	for _, kw := range hrefKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lastPathSegment(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	trimmed := strings.TrimSuffix(rawURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

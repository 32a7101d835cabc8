package scrapers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout = 30 * time.Second

	// courtesyDelay is the pause applied per emitted record when
	// walking listing pages.
	courtesyDelay = time.Second
)

// Listing pages occasionally sit behind aggressive bot filters, so
// requests carry ordinary browser headers.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// contentArea locates the primary content region of a listing page,
// falling back to progressively wider containers.
func contentArea(doc *goquery.Document) *goquery.Selection {
	if sel := doc.Find("div.view-content").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("main").First(); sel.Length() > 0 {
		return sel
	}
	if sel := doc.Find("div#main-content").First(); sel.Length() > 0 {
		return sel
	}
	return doc.Selection
}

var pageDateFormats = []string{
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/06",
}

// parsePageDate tries each known literal format and yields nil rather
// than failing when none match.
func parsePageDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, format := range pageDateFormats {
		if parsed, err := time.Parse(format, text); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

// slug normalizes free text into a stable identifier fragment.
func slug(text string, max int) string {
	if len(text) > max {
		text = text[:max]
	}
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, " ", "-")
	text = strings.ReplaceAll(text, "/", "-")
	return text
}

func absolutize(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(base, "/") + href
}

package scrapers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/scraper"
)

// Press pulls company press-release RSS feeds and keeps items whose
// title mentions one of the interest keywords. Feed items have no
// stable external identifier, so the source id is derived from the
// item URL.
type Press struct {
	client *http.Client
	feeds  []string
	logger *slog.Logger
}

var _ scraper.Scraper = (*Press)(nil)

// NewPress wires an HTTP client; a nil client gets a 30s timeout.
func NewPress(client *http.Client, feeds []string, logger *slog.Logger) *Press {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Press{client: client, feeds: feeds, logger: logger}
}

// Name identifies the adapter.
func (p *Press) Name() string { return "press-releases" }

// Source tags persisted updates.
func (p *Press) Source() string { return domain.SourcePress }

// Fetch walks each configured feed; a failing feed is logged and
// skipped so the remaining feeds still contribute.
func (p *Press) Fetch(ctx context.Context, req scraper.Request) []domain.RawUpdate {
	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); len(kw) >= 3 {
			keywords = append(keywords, kw)
		}
	}

	parser := gofeed.NewParser()
	var results []domain.RawUpdate

	for _, feedURL := range p.feeds {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			p.logger.Error("build feed request", "feed", feedURL, "error", err)
			continue
		}
		resp, err := p.client.Do(httpReq)
		if err != nil {
			p.logger.Error("fetch feed", "feed", feedURL, "error", err)
			continue
		}
		feed, err := parser.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			p.logger.Error("parse feed", "feed", feedURL, "error", err)
			continue
		}

		for _, item := range feed.Items {
			title := strings.TrimSpace(item.Title)
			link := strings.TrimSpace(item.Link)
			if title == "" || link == "" {
				continue
			}
			if len(keywords) > 0 && !matchesAny(strings.ToLower(title), keywords) {
				continue
			}

			var published *time.Time
			if item.PublishedParsed != nil {
				t := item.PublishedParsed.UTC()
				published = &t
			} else if item.UpdatedParsed != nil {
				t := item.UpdatedParsed.UTC()
				published = &t
			}

			content := strings.TrimSpace(item.Description)
			if content == "" {
				content = "Press release: " + title
			}

			results = append(results, domain.RawUpdate{
				SourceID:      externalID(link),
				Title:         title,
				Content:       content,
				SourceURL:     link,
				UpdateType:    domain.TypePressRelease,
				PublishedDate: published,
				RawPayload: map[string]any{
					"feed":      feedURL,
					"publisher": strings.TrimSpace(feed.Title),
				},
			})
		}
	}

	p.logger.Info("fetched press releases", "count", len(results))
	return results
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func externalID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", sum)[:16]
}

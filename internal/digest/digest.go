package digest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
)

// Render caps per bucket. Items beyond a cap are counted but not
// rendered.
const (
	topStoriesCap = 5
	fdaCap        = 10
	trialsCap     = 10
)

// topStoryThreshold is strict: a score must exceed it to qualify.
const topStoryThreshold = 80

// Item is one renderable digest entry with display defaults already
// applied.
type Item struct {
	ID            int64
	Title         string
	Source        string
	SourceURL     string
	UpdateType    string
	PublishedDate string
	Summary       string
	Score         int
	Impact        string
}

// FromEnriched maps a stored update (with optional analysis) to a
// digest item, substituting documented defaults for missing analysis
// data rather than failing.
func FromEnriched(e domain.EnrichedUpdate) Item {
	item := Item{
		ID:            e.Update.ID,
		Title:         e.Update.Title,
		Source:        e.Update.Source,
		SourceURL:     e.Update.SourceURL,
		UpdateType:    e.Update.UpdateType,
		PublishedDate: "Recent",
		Summary:       "No summary available.",
		Impact:        string(domain.ImpactHigh),
	}
	if e.Update.PublishedDate != nil {
		item.PublishedDate = e.Update.PublishedDate.Format("January 2, 2006")
	}
	if e.Analysis != nil {
		if e.Analysis.Summary != "" {
			item.Summary = e.Analysis.Summary
		}
		item.Score = e.Analysis.RelevanceScore
		if e.Analysis.ImpactLevel != "" {
			item.Impact = string(e.Analysis.ImpactLevel)
		}
	}
	return item
}

type templateData struct {
	Recipient      string
	DigestDate     string
	TotalUpdates   int
	TopStories     []Item
	FDAUpdates     []Item
	ClinicalTrials []Item
	Empty          bool
}

// Assemble buckets the given items in order and renders the digest
// document. The returned count is the full input length regardless of
// per-bucket render caps. Items must already be filtered to the send
// window, newest first.
func Assemble(recipient string, items []Item, now time.Time) (string, int, error) {
	var top, fda, trials []Item

	for _, item := range items {
		switch {
		case item.Score > topStoryThreshold:
			top = append(top, item)
		case item.Source == domain.SourceFDA:
			fda = append(fda, item)
		case item.UpdateType == domain.TypeGuidance || item.UpdateType == domain.TypeApproval:
			fda = append(fda, item)
		default:
			trials = append(trials, item)
		}
	}

	data := templateData{
		Recipient:      recipient,
		DigestDate:     now.UTC().Format("Monday, January 2, 2006"),
		TotalUpdates:   len(items),
		TopStories:     capped(top, topStoriesCap),
		FDAUpdates:     capped(fda, fdaCap),
		ClinicalTrials: capped(trials, trialsCap),
		Empty:          len(top) == 0 && len(fda) == 0 && len(trials) == 0,
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", 0, fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), len(items), nil
}

func capped(items []Item, max int) []Item {
	if len(items) > max {
		return items[:max]
	}
	return items
}

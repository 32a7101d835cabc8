package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mcbuckeye/regulatoryradar/internal/domain"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

const (
	// contentBudget caps the raw content characters sent per prompt.
	contentBudget = 3000
	replyTokens   = 300
	maxKeyPoints  = 5
	defaultScore  = 50
)

// Analyzer runs the AI sub-steps for one update: summarize, score,
// classify, extract key points. Every sub-step degrades to a
// deterministic fallback instead of failing, so enrichment always
// produces a usable analysis.
type Analyzer struct {
	generator ports.TextGenerator
	logger    *slog.Logger
}

// New builds an analyzer. A nil generator means no credential is
// configured; all sub-steps then return their fallback values.
func New(generator ports.TextGenerator, logger *slog.Logger) *Analyzer {
	return &Analyzer{generator: generator, logger: logger}
}

// Result is the enrichment outcome for one update.
type Result struct {
	Summary        string
	RelevanceScore int
	Impact         domain.ImpactLevel
	KeyPoints      []string
}

// Analyze runs the full sub-step sequence.
func (a *Analyzer) Analyze(ctx context.Context, title, content string, keywords []string) Result {
	summary := a.Summarize(ctx, title, content)
	score, _ := a.ScoreRelevance(ctx, title, summary, keywords)
	return Result{
		Summary:        summary,
		RelevanceScore: score,
		Impact:         ImpactLevelFor(score),
		KeyPoints:      a.ExtractKeyPoints(ctx, title, content),
	}
}

// Summarize produces a short prose summary of the update.
func (a *Analyzer) Summarize(ctx context.Context, title, content string) string {
	if a.generator == nil {
		return fmt.Sprintf("Summary not available (API key not configured). Title: %s", title)
	}

	prompt := fmt.Sprintf(
		"You are a regulatory affairs analyst. Summarize the following FDA/regulatory "+
			"update in 2-3 concise sentences. Focus on what changed, who it affects, and "+
			"the potential impact on the pharmaceutical industry.\n\n"+
			"Title: %s\n\nContent: %s\n\nSummary:",
		title, truncate(content, contentBudget),
	)

	reply, err := a.generator.Generate(ctx, prompt, replyTokens)
	if err != nil {
		a.logger.Error("summarize update", "error", err)
		return fmt.Sprintf("Summary generation failed. Title: %s", title)
	}
	return strings.TrimSpace(reply)
}

// ScoreRelevance rates the update 1-100 against the caller's interest
// keywords and returns the score with one-line reasoning.
func (a *Analyzer) ScoreRelevance(ctx context.Context, title, summary string, keywords []string) (int, string) {
	if a.generator == nil {
		return defaultScore, "Relevance scoring not available (API key not configured)."
	}

	areas := "general pharmaceutical"
	if len(keywords) > 0 {
		areas = strings.Join(keywords, ", ")
	}

	prompt := fmt.Sprintf(
		"You are a regulatory affairs analyst scoring the relevance of an update "+
			"for someone interested in these therapeutic areas: %s.\n\n"+
			"Title: %s\nSummary: %s\n\n"+
			"Rate the relevance from 1-100 where:\n"+
			"- 1-20: Not relevant\n"+
			"- 21-40: Marginally relevant\n"+
			"- 41-60: Moderately relevant\n"+
			"- 61-80: Highly relevant\n"+
			"- 81-100: Critical/must-read\n\n"+
			"Respond in EXACTLY this format (two lines only):\n"+
			"SCORE: <number>\n"+
			"REASONING: <one sentence explanation>",
		areas, title, summary,
	)

	reply, err := a.generator.Generate(ctx, prompt, replyTokens)
	if err != nil {
		a.logger.Error("score relevance", "error", err)
		return defaultScore, "Scoring failed due to API error."
	}

	parsed := parseScoreReply(reply)
	if parsed == nil {
		return defaultScore, "Unable to parse relevance score."
	}
	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "Unable to parse relevance score."
	}
	return parsed.Score, reasoning
}

// ImpactLevelFor maps a relevance score onto fixed half-open bands;
// boundary values belong to the higher band.
func ImpactLevelFor(score int) domain.ImpactLevel {
	switch {
	case score >= 80:
		return domain.ImpactCritical
	case score >= 60:
		return domain.ImpactHigh
	case score >= 40:
		return domain.ImpactMedium
	case score >= 20:
		return domain.ImpactLow
	default:
		return domain.ImpactMinimal
	}
}

// ExtractKeyPoints requests 3-5 single-sentence bullets, tolerating
// sloppy formatting in the reply.
func (a *Analyzer) ExtractKeyPoints(ctx context.Context, title, content string) []string {
	fallback := []string{"Key update: " + title}
	if a.generator == nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"Extract 3-5 key points from this regulatory update. "+
			"Each point should be one concise sentence.\n\n"+
			"Title: %s\nContent: %s\n\n"+
			"Return ONLY the bullet points, one per line, starting with a dash (-):",
		title, truncate(content, contentBudget),
	)

	reply, err := a.generator.Generate(ctx, prompt, replyTokens)
	if err != nil {
		a.logger.Error("extract key points", "error", err)
		return fallback
	}

	points := parseBullets(reply)
	if len(points) == 0 {
		return fallback
	}
	return points
}

// scoreReply is the optional structured result of the tolerant line
// parser; the caller applies defaults when parsing yields nothing.
type scoreReply struct {
	Score     int
	Reasoning string
}

func parseScoreReply(text string) *scoreReply {
	reply := scoreReply{Score: defaultScore}
	found := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SCORE:"):
			raw := strings.TrimSpace(line[len("SCORE:"):])
			if value, err := strconv.ParseFloat(raw, 64); err == nil {
				reply.Score = clampScore(int(value))
			}
			found = true
		case strings.HasPrefix(upper, "REASONING:"):
			reply.Reasoning = strings.TrimSpace(line[len("REASONING:"):])
			found = true
		}
	}

	if !found {
		return nil
	}
	return &reply
}

func parseBullets(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if len(line) <= 5 {
			continue
		}
		points = append(points, line)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}

package models

import (
	"fmt"
	"math"
)

// DefaultLowCTRThreshold is the CTR percentage below which an article
// counts as low-performing.
const DefaultLowCTRThreshold = 10.0

type AnalyticsSummary struct {
	TotalArticles              int     `json:"total_articles"`
	TotalTickets               int     `json:"total_tickets"`
	TicketsWithRecommendations int     `json:"tickets_with_recommendations"`
	CoveragePercent            float64 `json:"coverage_percent"`
	ResolutionRatePercent      float64 `json:"resolution_rate_percent"`
	TotalFeedback              int     `json:"total_feedback"`
}

type ArticleStat struct {
	ArticleID   ID      `json:"article_id"`
	Title       string  `json:"title,omitempty"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// DisplayName falls back to the identifier when the backend knows no
// title.
func (a ArticleStat) DisplayName() string {
	if a.Title != "" {
		return a.Title
	}
	return a.ArticleID.String()
}

// AnalyticsSnapshot is recomputed wholesale on every poll.
type AnalyticsSnapshot struct {
	Summary    AnalyticsSummary `json:"summary"`
	PerArticle []ArticleStat    `json:"per_article"`
	LowCTR     []ArticleStat    `json:"low_ctr"`
	Issues     []string         `json:"issues,omitempty"`
}

// CTR returns clicks/impressions as a percentage rounded to two decimals.
func CTR(clicks, impressions int) float64 {
	if impressions <= 0 {
		return 0
	}
	return math.Round(float64(clicks)/float64(impressions)*100*100) / 100
}

// Derive fills in the derived parts of a freshly decoded snapshot:
// per-article CTR, the low-CTR subset and the quality issues. When the
// backend sends no per-article breakdown its low_ctr list is kept as-is.
func (s AnalyticsSnapshot) Derive(lowCTRThreshold, minCoverage float64) AnalyticsSnapshot {
	out := AnalyticsSnapshot{Summary: s.Summary}

	if len(s.PerArticle) > 0 {
		out.PerArticle = make([]ArticleStat, 0, len(s.PerArticle))
		out.LowCTR = make([]ArticleStat, 0)
		for _, a := range s.PerArticle {
			if a.Impressions > 0 {
				a.CTR = CTR(a.Clicks, a.Impressions)
			}
			out.PerArticle = append(out.PerArticle, a)
			if a.Impressions > 0 && a.CTR < lowCTRThreshold {
				out.LowCTR = append(out.LowCTR, a)
			}
		}
	} else {
		out.PerArticle = []ArticleStat{}
		out.LowCTR = append([]ArticleStat{}, s.LowCTR...)
	}

	if s.Summary.TotalTickets > 0 && s.Summary.CoveragePercent < minCoverage {
		out.Issues = append(out.Issues, fmt.Sprintf("Low coverage: %.2f%%", s.Summary.CoveragePercent))
	}
	if len(out.LowCTR) > 0 {
		out.Issues = append(out.Issues, fmt.Sprintf("%d low-CTR articles (CTR < %.0f%%)", len(out.LowCTR), lowCTRThreshold))
	}
	return out
}

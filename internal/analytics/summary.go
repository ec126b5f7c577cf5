package analytics

import (
	"time"

	"github.com/joescharf/revdash/internal/models"
)

// Totals is the overall sentiment breakdown behind the metric cards.
type Totals struct {
	Counts
	Unknown int `json:"unknown"`
}

// Classified is the number of reviews with a recognized sentiment.
func (t Totals) Classified() int {
	return t.Positive + t.Negative + t.Neutral
}

// Share returns the percentage of classified reviews with sentiment s.
func (t Totals) Share(s models.Sentiment) float64 {
	n := t.Classified()
	if n == 0 {
		return 0
	}
	var v int
	switch s {
	case models.SentimentPositive:
		v = t.Positive
	case models.SentimentNegative:
		v = t.Negative
	case models.SentimentNeutral:
		v = t.Neutral
	default:
		return 0
	}
	return float64(v) / float64(n) * 100
}

// TotalsOf tallies every review.
func TotalsOf(reviews []*models.Review) Totals {
	var t Totals
	for _, r := range reviews {
		if r == nil {
			continue
		}
		t.add(r.Sentiment)
		if !r.Sentiment.Valid() {
			t.Unknown++
		}
	}
	return t
}

// InWindow returns the reviews created in [from, to].
func InWindow(reviews []*models.Review, from, to time.Time) []*models.Review {
	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		if r == nil || r.CreatedAt.IsZero() {
			continue
		}
		if r.CreatedAt.Before(from) || r.CreatedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Change is the period-over-period percentage change of each counter.
type Change struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Total    float64 `json:"total"`
}

// Summary is everything the dashboard needs for one filter and window.
type Summary struct {
	Days        int            `json:"days"`
	GeneratedAt time.Time      `json:"generated_at"`
	Current     Totals         `json:"current"`
	Previous    Totals         `json:"previous"`
	Change      Change         `json:"change"`
	Trends      []DailyTrend   `json:"trends"`
	Repos       []RepoStats    `json:"repos"`
	Versions    []VersionStats `json:"versions"`
}

// Summarize compares the trailing window of days ending at now against the
// window of the same length just before it. Repository and version stats
// cover the current window only.
func Summarize(reviews []*models.Review, days int, now time.Time) *Summary {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now = now.UTC()
	window := time.Duration(days) * day
	start := now.Add(-window)

	current := InWindow(reviews, start, now)
	previous := InWindow(reviews, start.Add(-window), start.Add(-time.Nanosecond))

	cur, prev := TotalsOf(current), TotalsOf(previous)
	return &Summary{
		Days:        days,
		GeneratedAt: now,
		Current:     cur,
		Previous:    prev,
		Change: Change{
			Positive: PercentageChange(float64(cur.Positive), float64(prev.Positive)),
			Negative: PercentageChange(float64(cur.Negative), float64(prev.Negative)),
			Neutral:  PercentageChange(float64(cur.Neutral), float64(prev.Neutral)),
			Total:    PercentageChange(float64(cur.Total), float64(prev.Total)),
		},
		Trends:   DailyTrendsAt(current, days, now),
		Repos:    ByRepo(current),
		Versions: ByVersion(current),
	}
}

// Package analytics aggregates review records into the sentiment summaries
// shown on the dashboard. Every function is pure: inputs are never mutated
// and results are freshly allocated.
//
// Reviews whose sentiment is absent or unrecognized count toward a bucket's
// Total but toward none of the sentiment counters.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/joescharf/revdash/internal/models"
)

// DefaultWindowDays is the trailing window used when none is given.
const DefaultWindowDays = 7

const day = 24 * time.Hour

// Counts holds the sentiment tallies of one bucket.
type Counts struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Total    int `json:"total"`
}

func (c *Counts) add(s models.Sentiment) {
	c.Total++
	switch s {
	case models.SentimentPositive:
		c.Positive++
	case models.SentimentNegative:
		c.Negative++
	case models.SentimentNeutral:
		c.Neutral++
	}
}

// positiveRate returns Positive as a percentage of Total, 0 for an empty bucket.
func positiveRate(c Counts) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Positive) / float64(c.Total) * 100
}

// DailyTrend is the sentiment tally of one UTC calendar day.
type DailyTrend struct {
	Date string `json:"date"`
	Counts
}

// RepoStats is the sentiment tally of one repository.
type RepoStats struct {
	RepoName string `json:"repo_name"`
	Counts
	PositiveRate float64 `json:"positive_rate"`
}

// VersionStats is the sentiment tally of one workflow version.
type VersionStats struct {
	Version string `json:"version"`
	Counts
	PositiveRate float64 `json:"positive_rate"`
}

// UnknownVersion labels reviews without a workflow version.
const UnknownVersion = "unknown"

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// DailyTrends buckets reviews by day over the trailing window ending now.
func DailyTrends(reviews []*models.Review, days int) []DailyTrend {
	return DailyTrendsAt(reviews, days, time.Now())
}

// DailyTrendsAt returns exactly days buckets, ascending by date, the last one
// being now's UTC date. A review is counted when it was created within
// [now-days*24h, now] and its date is one of the buckets; anything else,
// including a zero timestamp, is dropped.
func DailyTrendsAt(reviews []*models.Review, days int, now time.Time) []DailyTrend {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now = now.UTC()
	start := now.Add(-time.Duration(days) * day)

	trends := make([]DailyTrend, days)
	index := make(map[string]int, days)
	for i := range trends {
		key := dateKey(now.Add(-time.Duration(days-1-i) * day))
		trends[i].Date = key
		index[key] = i
	}

	for _, r := range reviews {
		if r == nil || r.CreatedAt.IsZero() {
			continue
		}
		if r.CreatedAt.Before(start) || r.CreatedAt.After(now) {
			continue
		}
		if i, ok := index[dateKey(r.CreatedAt)]; ok {
			trends[i].add(r.Sentiment)
		}
	}
	return trends
}

// group accumulates counts per key, remembering first-seen order.
type group struct {
	keys   []string
	counts map[string]*Counts
}

func groupBy(reviews []*models.Review, key func(*models.Review) string) *group {
	g := &group{counts: make(map[string]*Counts)}
	for _, r := range reviews {
		if r == nil {
			continue
		}
		k := key(r)
		c, ok := g.counts[k]
		if !ok {
			c = &Counts{}
			g.counts[k] = c
			g.keys = append(g.keys, k)
		}
		c.add(r.Sentiment)
	}
	return g
}

// ByRepo groups reviews by repository, largest first.
func ByRepo(reviews []*models.Review) []RepoStats {
	g := groupBy(reviews, func(r *models.Review) string { return r.RepoName })
	out := make([]RepoStats, 0, len(g.keys))
	for _, k := range g.keys {
		c := *g.counts[k]
		out = append(out, RepoStats{RepoName: k, Counts: c, PositiveRate: positiveRate(c)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// ByVersion groups reviews by workflow version, largest first. Reviews
// without a version are grouped under UnknownVersion.
func ByVersion(reviews []*models.Review) []VersionStats {
	g := groupBy(reviews, func(r *models.Review) string {
		if v := r.Version(); v != "" {
			return v
		}
		return UnknownVersion
	})
	out := make([]VersionStats, 0, len(g.keys))
	for _, k := range g.keys {
		c := *g.counts[k]
		out = append(out, VersionStats{Version: k, Counts: c, PositiveRate: positiveRate(c)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// TopRepos returns at most n rows of stats.
func TopRepos(stats []RepoStats, n int) []RepoStats {
	if n < 0 || n >= len(stats) {
		return stats
	}
	return stats[:n]
}

// PercentageChange returns the relative change from previous to current.
// A rise from zero is reported as 100%, no change from zero as 0%.
func PercentageChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// FormatPercentage renders v with an explicit sign, e.g. "+12.5%".
func FormatPercentage(v float64, decimals int) string {
	sign := ""
	if v >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.*f%%", sign, decimals, v)
}

package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/revdash/internal/models"
)

var testNow = time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)

func review(repo string, s models.Sentiment, created time.Time) *models.Review {
	return &models.Review{RepoName: repo, Sentiment: s, CreatedAt: created}
}

func versioned(v string, s models.Sentiment) *models.Review {
	r := review("org/app", s, testNow)
	if v != "" {
		r.WorkflowVersion = &v
	}
	return r
}

func TestDailyTrends_Example(t *testing.T) {
	reviews := []*models.Review{
		review("org/a", models.SentimentPositive, testNow.Add(-time.Hour)),
		review("org/a", models.SentimentNegative, testNow.Add(-2*day)),
	}

	trends := DailyTrendsAt(reviews, 7, testNow)
	require.Len(t, trends, 7)

	assert.Equal(t, "2026-10-17", trends[6].Date)
	assert.Equal(t, Counts{Positive: 1, Total: 1}, trends[6].Counts)

	assert.Equal(t, "2026-10-15", trends[4].Date)
	assert.Equal(t, Counts{Negative: 1, Total: 1}, trends[4].Counts)

	for _, i := range []int{0, 1, 2, 3, 5} {
		assert.Equal(t, Counts{}, trends[i].Counts, "bucket %s should be empty", trends[i].Date)
	}
}

func TestDailyTrends_AscendingWithoutGaps(t *testing.T) {
	for _, days := range []int{1, 7, 14, 30, 90} {
		trends := DailyTrendsAt(nil, days, testNow)
		require.Len(t, trends, days)
		for i := 1; i < len(trends); i++ {
			prev, err := time.Parse(time.DateOnly, trends[i-1].Date)
			require.NoError(t, err)
			cur, err := time.Parse(time.DateOnly, trends[i].Date)
			require.NoError(t, err)
			assert.Equal(t, day, cur.Sub(prev), "days %d: gap between %s and %s", days, trends[i-1].Date, trends[i].Date)
		}
	}
}

func TestDailyTrends_DefaultWindow(t *testing.T) {
	assert.Len(t, DailyTrendsAt(nil, 0, testNow), DefaultWindowDays)
	assert.Len(t, DailyTrendsAt(nil, -3, testNow), DefaultWindowDays)
}

func TestDailyTrends_DropsOutsideWindow(t *testing.T) {
	reviews := []*models.Review{
		review("org/a", models.SentimentPositive, testNow.Add(-8*day)),
		review("org/a", models.SentimentPositive, testNow.Add(time.Hour)),
		review("org/a", models.SentimentPositive, time.Time{}),
		// Within the rolling cutoff but on a date before the first bucket.
		review("org/a", models.SentimentPositive, testNow.Add(-7*day+time.Minute)),
		nil,
	}
	trends := DailyTrendsAt(reviews, 7, testNow)
	for _, tr := range trends {
		assert.Zero(t, tr.Total, "bucket %s", tr.Date)
	}
}

func TestDailyTrends_UnknownSentimentCountsTowardTotal(t *testing.T) {
	reviews := []*models.Review{
		review("org/a", "", testNow),
		review("org/a", "mixed", testNow),
		review("org/a", models.SentimentNeutral, testNow),
	}
	trends := DailyTrendsAt(reviews, 7, testNow)
	last := trends[len(trends)-1]
	assert.Equal(t, 3, last.Total)
	assert.Equal(t, 1, last.Neutral)
	assert.Equal(t, 1, last.Positive+last.Negative+last.Neutral)
}

func TestDailyTrends_ClassifiedNeverExceedsInWindow(t *testing.T) {
	var reviews []*models.Review
	sentiments := []models.Sentiment{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral, ""}
	for i := 0; i < 40; i++ {
		reviews = append(reviews, review("org/a", sentiments[i%4], testNow.Add(-time.Duration(i)*5*time.Hour)))
	}
	trends := DailyTrendsAt(reviews, 7, testNow)

	inWindow := len(InWindow(reviews, testNow.Add(-7*day), testNow))
	classified := 0
	for _, tr := range trends {
		classified += tr.Positive + tr.Negative + tr.Neutral
	}
	assert.LessOrEqual(t, classified, inWindow)
}

func TestDailyTrends_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 23:30 local on Oct 16 is 07:30 UTC on Oct 17.
	created := time.Date(2026, 10, 16, 23, 30, 0, 0, loc)
	trends := DailyTrendsAt([]*models.Review{review("org/a", models.SentimentPositive, created)}, 7, testNow)
	assert.Equal(t, 1, trends[6].Positive)
}

func TestByRepo(t *testing.T) {
	reviews := []*models.Review{
		review("org/small", models.SentimentPositive, testNow),
		review("org/big", models.SentimentPositive, testNow),
		review("org/big", models.SentimentNegative, testNow),
		review("org/big", "", testNow),
		review("org/tie", models.SentimentNeutral, testNow),
	}

	stats := ByRepo(reviews)
	require.Len(t, stats, 3)

	assert.Equal(t, "org/big", stats[0].RepoName)
	assert.Equal(t, Counts{Positive: 1, Negative: 1, Total: 3}, stats[0].Counts)
	assert.InDelta(t, 100.0/3, stats[0].PositiveRate, 1e-9)

	// Ties keep first-seen order.
	assert.Equal(t, "org/small", stats[1].RepoName)
	assert.Equal(t, "org/tie", stats[2].RepoName)
	assert.Equal(t, 100.0, stats[1].PositiveRate)
	assert.Equal(t, 0.0, stats[2].PositiveRate)

	for i := 1; i < len(stats); i++ {
		assert.GreaterOrEqual(t, stats[i-1].Total, stats[i].Total)
	}
}

func TestByRepo_Empty(t *testing.T) {
	stats := ByRepo(nil)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)

	versions := ByVersion([]*models.Review{})
	assert.NotNil(t, versions)
	assert.Empty(t, versions)
}

func TestByVersion_UnknownLabel(t *testing.T) {
	reviews := []*models.Review{
		versioned("", models.SentimentPositive),
		versioned("", models.SentimentNegative),
		versioned("v2", models.SentimentPositive),
	}

	stats := ByVersion(reviews)
	require.Len(t, stats, 2)
	assert.Equal(t, UnknownVersion, stats[0].Version)
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, 50.0, stats[0].PositiveRate)
	assert.Equal(t, "v2", stats[1].Version)
}

func TestByVersion_EmptyStringIsUnknown(t *testing.T) {
	stats := ByVersion([]*models.Review{versioned("", models.SentimentPositive)})
	stats2 := ByVersion([]*models.Review{{WorkflowVersion: new(string)}})
	assert.Equal(t, UnknownVersion, stats[0].Version)
	assert.Equal(t, UnknownVersion, stats2[0].Version)
}

func TestTopRepos(t *testing.T) {
	stats := []RepoStats{{RepoName: "a"}, {RepoName: "b"}, {RepoName: "c"}}
	assert.Len(t, TopRepos(stats, 2), 2)
	assert.Len(t, TopRepos(stats, 10), 3)
	assert.Len(t, TopRepos(stats, -1), 3)
	assert.Empty(t, TopRepos(stats, 0))
}

func TestPercentageChange(t *testing.T) {
	assert.Equal(t, 100.0, PercentageChange(10, 0))
	assert.Equal(t, 0.0, PercentageChange(0, 0))
	assert.Equal(t, -50.0, PercentageChange(5, 10))
	assert.Equal(t, 50.0, PercentageChange(15, 10))
	assert.Equal(t, -100.0, PercentageChange(0, 4))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "+12.5%", FormatPercentage(12.5, 1))
	assert.Equal(t, "-50.0%", FormatPercentage(-50, 1))
	assert.Equal(t, "+0%", FormatPercentage(0, 0))
}
